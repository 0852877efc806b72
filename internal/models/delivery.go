package models

// SendSummary reports the outcome of one distribution attempt.
// Failed holds the error that stopped delivery; recipients after it were not attempted.
type SendSummary struct {
	Recipients int
	Sent       int
	Failed     error
}

// Complete returns true when every recipient was sent the report
func (s SendSummary) Complete() bool {
	return s.Failed == nil && s.Sent == s.Recipients
}
