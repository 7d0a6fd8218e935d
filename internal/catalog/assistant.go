package catalog

import "github.com/aiox-platform/contextflow/internal/workflow"

// Assistant is a single general-purpose agent with web and memory search.
func Assistant(d Deps) (*workflow.Workflow, error) {
	a, err := d.newAgent(agentSpec{
		name: "Personal Assistant",
		role: "You are a generic personal assistant who can search the web and check memories to answer users' questions.",
		instructions: []string{
			"Always check the answer factually before giving it to the user",
			"Always try to use your search tools to get the most relevant and recent information",
			"Never rely on prior knowledge alone",
			"Always check whether memory already holds a relevant answer",
		},
		tools: []string{ToolWebSearch, ToolKnowledgeSearch},
	}, d.Memory)
	if err != nil {
		return nil, err
	}
	return d.newWorkflow("assistant", "General personal assistant with web search and memory",
		d.step("Assistant", a), d.Memory), nil
}
