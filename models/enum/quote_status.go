package enum

type QuoteStatus string

const (
	QuoteStatusIdle     QuoteStatus = "idle"
	QuoteStatusLoading  QuoteStatus = "loading"
	QuoteStatusResolved QuoteStatus = "resolved"
	QuoteStatusFailed   QuoteStatus = "failed"
)
