package effects

// stubView is a minimal engine.InstanceView for handler tests.
type stubView struct {
	id         string
	workflowID string
	entityType string
	entityID   string
	state      string
	prevState  string
	assignedTo string
	metadata   map[string]any
}

func (v *stubView) InstanceID() string    { return v.id }
func (v *stubView) WorkflowID() string    { return v.workflowID }
func (v *stubView) EntityType() string    { return v.entityType }
func (v *stubView) EntityID() string      { return v.entityID }
func (v *stubView) CurrentState() string  { return v.state }
func (v *stubView) PreviousState() string { return v.prevState }
func (v *stubView) AssignedTo() string    { return v.assignedTo }

func (v *stubView) MetadataValue(key string) (any, bool) {
	val, ok := v.metadata[key]
	return val, ok
}

func (v *stubView) MetadataCopy() map[string]any {
	out := make(map[string]any, len(v.metadata))
	for k, val := range v.metadata {
		out[k] = val
	}
	return out
}

func candidateView() *stubView {
	return &stubView{
		id:         "candidate-c1-xyz",
		workflowID: "candidate-pipeline",
		entityType: "candidate",
		entityID:   "c1",
		state:      "offer",
		prevState:  "interview",
		assignedTo: "u-recruiter",
		metadata: map[string]any{
			"candidateName":  "Jordan Lee",
			"candidateEmail": "jordan@example.com",
			"score":          87,
		},
	}
}
