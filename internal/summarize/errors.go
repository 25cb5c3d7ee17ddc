package summarize

import "errors"

var (
	// ErrContentTooShort indicates the trimmed content is under MinContentLength characters.
	ErrContentTooShort = errors.New("summarize: content too short")
	// ErrMissingAPIKey indicates the client has no API key configured.
	ErrMissingAPIKey = errors.New("summarize: missing api key")
	// ErrAuthentication indicates the endpoint rejected the credentials.
	ErrAuthentication = errors.New("summarize: authentication failed")
	// ErrSummaryFailed covers every other failure.
	ErrSummaryFailed = errors.New("summarize: request failed")
)

// Message maps err to the text shown to the user.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrContentTooShort):
		return "Content is too short to summarize"
	case errors.Is(err, ErrMissingAPIKey):
		return "Gemini API key is not configured. Please add GEMINI_API_KEY to your environment variables."
	case errors.Is(err, ErrAuthentication):
		return "Authentication error with Gemini API. Please check your API key configuration."
	default:
		return "Failed to generate summary"
	}
}
