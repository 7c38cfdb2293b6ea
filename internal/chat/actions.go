package chat

// QuickAction is a canned query a surface can offer as a one-click shortcut. It is submitted through the same path as
// a typed query.
type QuickAction struct {
	Command string `json:"command"`
	Label   string `json:"label"`
	Query   string `json:"query"`
}

var QuickActions = []QuickAction{
	{Command: "cost", Label: "💰 Cost optimization", Query: "Suggest cost optimization opportunities for my AWS account"},
	{Command: "billing", Label: "📊 Billing summary", Query: "Show billing summary"},
	{Command: "ec2", Label: "🖥️ List EC2 instances", Query: "List my EC2 instances"},
	{Command: "analyze", Label: "🔎 EC2 analysis", Query: "Analyze my EC2 instances"},
}

// FindQuickAction looks up a quick action by its command name
func FindQuickAction(command string) (QuickAction, bool) {
	for _, a := range QuickActions {
		if a.Command == command {
			return a, true
		}
	}
	return QuickAction{}, false
}

// AboutTitle and AboutItems describe what the assistant can do
const AboutTitle = "🌟 Who am I & What can I do?"

var AboutItems = []string{
	"💰 Provide you with cost optimization solutions for your AWS account",
	"📊 Provide you with billing summaries for your AWS account",
	"🖥️ Help with cloud operations like EC2 management",
	"🔎 Perform EC2 analysis",
}

const AboutFooter = "✨ I act as your personal AWS operations helper to make your cloud journey easier."
