package conversation

const defaultPartnerPrompt = "You are a friendly conversation partner practicing English."

// Scenario is a role-play setting the user can pick.
type Scenario struct {
	Name   string `json:"name"`
	Prompt string `json:"-"`
}

var scenarios = []Scenario{
	{"Job Interview", "You are a hiring manager conducting a job interview. Ask relevant questions and respond professionally."},
	{"Restaurant", "You are a waiter at a restaurant. Help the customer order food and respond naturally."},
	{"Travel", "You are a travel guide. Help the tourist with directions and information."},
	{"Customer Support", "You are a customer support representative. Help resolve customer issues."},
	{"Meeting", "You are a business colleague in a meeting. Discuss ideas and collaborate."},
}

// SystemPromptFor returns the role prompt for scenario; unknown names get
// the friendly partner.
func SystemPromptFor(scenario string) string {
	for _, s := range scenarios {
		if s.Name == scenario {
			return s.Prompt
		}
	}
	return defaultPartnerPrompt
}

func ScenarioNames() []string {
	names := make([]string, len(scenarios))
	for i, s := range scenarios {
		names[i] = s.Name
	}
	return names
}

const (
	openingInstruction = " Start the conversation with a greeting or opening statement."
	scoreSystemPrompt  = `Score this English response (0-100) based on grammar, vocabulary, and naturalness. Return only JSON: {"score": number, "feedback": "brief comment"}`
)
