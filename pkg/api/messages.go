package api

type (
	// RecipeInfo summarizes a registered recipe
	RecipeInfo struct {
		ID    RecipeID   `json:"id"`
		Title string     `json:"title"`
		Steps []StepInfo `json:"steps,omitempty"`
	}

	// StepInfo describes a step by key and display name
	StepInfo struct {
		ID   StepID `json:"id"`
		Name string `json:"name"`
	}

	// RecipesListResponse contains all registered recipes
	RecipesListResponse struct {
		Recipes []*RecipeInfo `json:"recipes"`
		Count   int           `json:"count"`
	}

	// CreateSessionRequest starts a new run of a recipe
	CreateSessionRequest struct {
		Recipe RecipeID `json:"recipe"`
	}

	// NextStepResponse is returned after attempting the next step of a run
	NextStepResponse struct {
		Outcome *Outcome `json:"outcome"`
		Session *Session `json:"session"`
	}

	// SubscribedResult is the first message a session socket receives,
	// carrying the session as it stood when the client connected. Only
	// events with a greater Sequence follow it
	SubscribedResult struct {
		Session  *Session `json:"session"`
		Type     string   `json:"type"`
		Sequence int64    `json:"sequence"`
	}

	// HealthResponse provides service health information
	HealthResponse struct {
		Service string `json:"service"`
		Status  string `json:"status"`
		Version string `json:"version"`
	}

	// MessageResponse contains a simple message string
	MessageResponse struct {
		Message string `json:"message"`
	}

	// ErrorResponse contains error details for failed requests
	ErrorResponse struct {
		Error  string `json:"error"`
		Status int    `json:"status,omitempty"`
	}
)
