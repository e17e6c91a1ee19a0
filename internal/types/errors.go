package types

type (
	// ErrorBody is the error envelope shared by both transports.
	ErrorBody struct {
		Error          string `json:"error"`
		Message        string `json:"message"`
		Hint           string `json:"hint"`
		ExpectedFormat any    `json:"expected_format,omitempty"`
	}

	// HealthOutput is the body of the health probe.
	HealthOutput struct {
		Status  string  `json:"status"`
		Version string  `json:"version"`
		Uptime  float64 `json:"uptime"`
	}
)
