package catalog

import (
	"fmt"

	"github.com/aiox-platform/contextflow/internal/workflow"
)

// PreparePatientCase frames the raw symptoms as a research brief.
func PreparePatientCase(s *workflow.State) string {
	return fmt.Sprintf(`Patient presenting with the following symptoms and concerns:
<patient_case>
%s
</patient_case>

Search for:
1. Latest clinical research on these symptoms
2. Current treatment protocols and guidelines
3. Recent case studies with similar presentations
4. Drug interactions and contraindications
5. Evidence-based diagnostic criteria

Retrieve at least 10 relevant medical sources`, s.Input)
}

// PrepareDiagnosticReport combines the case with the research findings.
func PrepareDiagnosticReport(s *workflow.State) string {
	return fmt.Sprintf(`Generate a comprehensive diagnostic analysis report for:
<patient_case>
%s
</patient_case>

Based on the following medical research and clinical guidelines:
<clinical_research>
%s
</clinical_research>

Provide:
1. Differential diagnosis with probability rankings
2. Recommended diagnostic tests and procedures
3. Evidence-based treatment options
4. Potential complications and red flags
5. Follow-up care recommendations
6. Patient education points`, s.Input, s.Previous)
}

// Clinical researches a patient case with a two-agent team, then writes a
// differential diagnosis report.
func Clinical(d Deps) (*workflow.Workflow, error) {
	mem := d.Memory

	literature, err := d.newAgent(agentSpec{
		name:  "Medical Literature Agent",
		role:  "Search for peer-reviewed medical research, clinical trials, and latest treatment protocols.",
		tools: []string{ToolWebSearch, ToolKnowledgeSearch},
	}, mem)
	if err != nil {
		return nil, err
	}
	guidelines, err := d.newAgent(agentSpec{
		name:  "Clinical Guidelines Agent",
		role:  "Extract evidence-based guidelines, dosage protocols, and contraindications from medical databases.",
		tools: []string{ToolKnowledgeSearch},
	}, mem)
	if err != nil {
		return nil, err
	}
	leader, err := d.newAgent(agentSpec{
		name: "Medical Research Team",
		role: "You lead a medical research team and merge its findings into one brief.",
	}, mem)
	if err != nil {
		return nil, err
	}
	specialist, err := d.newAgent(agentSpec{
		name: "Diagnostic Specialist Agent",
		instructions: []string{
			"Analyze patient symptoms, lab results, and medical history to provide differential diagnosis recommendations",
		},
	}, mem)
	if err != nil {
		return nil, err
	}

	team := workflow.NewParallel("Medical Research Team",
		workflow.AgentAggregator(leader,
			"Conduct comprehensive medical literature review and extract clinical guidelines for patient case analysis"),
		d.step("Clinical Guidelines", guidelines).WithInput(PreparePatientCase),
		d.step("Medical Literature", literature).WithInput(PreparePatientCase),
	)

	root := workflow.NewSequential("Clinical Diagnostic Support",
		team,
		d.step("Diagnostic Report", specialist).WithInput(PrepareDiagnosticReport),
	)
	return d.newWorkflow("clinical",
		"AI-assisted diagnostic analysis using latest medical research and clinical guidelines",
		root, mem), nil
}
