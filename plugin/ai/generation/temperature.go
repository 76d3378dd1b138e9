package generation

// Base and retry temperatures per engine. The escalation is a pure function
// of the attempt index so a retried generation is reproducible in tests.
const (
	composerBaseTemp  float32 = 0.8
	composerRetryTemp float32 = 1.0
	empathyBaseTemp   float32 = 0.7
	empathyRetryTemp  float32 = 0.9
)

// ComposerTemperature returns the sampling temperature for the standard
// composer at the given attempt (0-based).
func ComposerTemperature(attempt int) float32 {
	if attempt > 0 {
		return composerRetryTemp
	}
	return composerBaseTemp
}

// EmpathyTemperature returns the sampling temperature for the empathy engine
// at the given attempt (0-based).
func EmpathyTemperature(attempt int) float32 {
	if attempt > 0 {
		return empathyRetryTemp
	}
	return empathyBaseTemp
}
