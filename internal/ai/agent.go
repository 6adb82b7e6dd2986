package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"school-office/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
	"github.com/shopspring/decimal"
)

// Actions the assistant may propose. Every proposal requires explicit
// human confirmation before anything is written.
const (
	ActionRecordPayment   = "record_payment"
	ActionGenerateInvoice = "generate_invoice"
	ActionClarify         = "clarify"
)

// Proposal is a structured interpretation of a free-text office request.
// Action selects which fields are meaningful: record_payment uses
// StudentSID and Amount, generate_invoice uses StudentSID, Month, Year
// and Fees, and clarify uses only Question.
type Proposal struct {
	Action     string   `json:"action" jsonschema:"enum=record_payment,enum=generate_invoice,enum=clarify" jsonschema_description:"What the user is asking for, or clarify when the request is ambiguous"`
	StudentSID string   `json:"student_sid" jsonschema_description:"The six digit student ID the request refers to"`
	Month      string   `json:"month" jsonschema_description:"Bikram Sambat month name, e.g. Baisakh"`
	Year       int      `json:"year" jsonschema_description:"Bikram Sambat year, e.g. 2081"`
	Amount     string   `json:"amount" jsonschema_description:"Payment amount as an exact decimal string, e.g. 1500.00"`
	Fees       []string `json:"fees" jsonschema_description:"Fee kinds to bill when generating an invoice"`
	Question   string   `json:"question" jsonschema_description:"The clarifying question to ask when action is clarify"`
	Confidence float64  `json:"confidence" jsonschema_description:"Confidence in this interpretation, 0.0 to 1.0"`
	Reasoning  string   `json:"reasoning" jsonschema_description:"Short explanation of how the request was read"`
}

// Normalize trims whitespace the model tends to leave on identifiers.
func (p *Proposal) Normalize() {
	p.Action = strings.TrimSpace(p.Action)
	p.StudentSID = strings.TrimSpace(p.StudentSID)
	p.Month = strings.TrimSpace(p.Month)
	p.Amount = strings.TrimSpace(p.Amount)
	for i, f := range p.Fees {
		p.Fees[i] = strings.TrimSpace(f)
	}
}

// Validate checks the proposal is internally consistent before it is
// shown to the user for confirmation.
func (p *Proposal) Validate() error {
	switch p.Action {
	case ActionClarify:
		if p.Question == "" {
			return fmt.Errorf("clarify proposal has no question")
		}
		return nil
	case ActionRecordPayment:
		if p.StudentSID == "" {
			return fmt.Errorf("record_payment proposal has no student id")
		}
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return fmt.Errorf("invalid payment amount %q: %w", p.Amount, err)
		}
		if !amount.IsPositive() {
			return fmt.Errorf("payment amount must be positive, got %s", amount)
		}
		return nil
	case ActionGenerateInvoice:
		if p.StudentSID == "" {
			return fmt.Errorf("generate_invoice proposal has no student id")
		}
		if !core.ValidMonth(p.Month) {
			return fmt.Errorf("unknown month %q", p.Month)
		}
		if p.Year <= 0 {
			return fmt.Errorf("invalid year %d", p.Year)
		}
		for _, f := range p.Fees {
			if !core.ValidFeeKind(core.FeeKind(f)) {
				return fmt.Errorf("unknown fee kind %q", f)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown action %q", p.Action)
	}
}

type AgentService interface {
	InterpretRequest(ctx context.Context, naturalLanguage string, studentDirectory string) (*Proposal, error)
}

type Agent struct {
	client *openai.Client
}

func NewAgent(apiKey string) *Agent {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &Agent{client: &client}
}

// InterpretRequest turns a free-text office request into a structured
// proposal. studentDirectory is a plain-text roster (sid, name, class)
// the model uses to resolve names to student IDs.
func (a *Agent) InterpretRequest(ctx context.Context, naturalLanguage string, studentDirectory string) (*Proposal, error) {
	prompt := fmt.Sprintf(`You are the billing assistant of a school office.
Your goal is to interpret a request in natural language and propose exactly one action.
Rules:
1. Actions: record_payment (a student paid money), generate_invoice (bill a student for a month), clarify (the request is ambiguous or the student cannot be identified).
2. Resolve student names against the roster below and use the six digit sid. If more than one student matches, clarify.
3. Months are Bikram Sambat names (Baisakh through Chaitra). If the month is missing for an invoice, clarify.
4. Amounts must be exact decimal strings (e.g. "1500.00").
5. Fee kinds: registration, monthly, exam, sports, music, medical, tuition, stationery, tieBelt.
6. Provide a confidence score (0.0-1.0) and explain your reasoning.

Student roster:
%s

Request: %s`, studentDirectory, naturalLanguage)

	// Dynamically generate the JSON schema from the Go struct
	schemaStruct := generateSchema()
	schemaJSON, err := json.Marshal(schemaStruct)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(shared.ChatModelGPT4o),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "office_action_proposal",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A proposed billing action for human confirmation"),
				},
			},
		},
	}

	resp, err := a.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", err)
	}

	content := resp.OutputText()
	if content == "" {
		return nil, fmt.Errorf("empty response content")
	}

	var proposal Proposal
	if err := json.Unmarshal([]byte(content), &proposal); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}

	proposal.Normalize()
	if err := proposal.Validate(); err != nil {
		return nil, fmt.Errorf("proposal validation failed: %w", err)
	}

	return &proposal, nil
}

func generateSchema() interface{} {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v Proposal
	return reflector.Reflect(v)
}
