package core

// User-facing texts shared by providers and the router.
const (
	QuotaExceededMessage = "Emzyking AI quota exceeded. Please try again later."

	GuidanceMessage = "I'm not sure how to help with that.\n" +
		"Try one of the following:\n" +
		"- 'Generate a Python function to sort a list'\n" +
		"- 'Fix this broken JavaScript code'\n" +
		"- 'Explain what this SQL query does'\n" +
		"- 'Remember that I prefer Python over Java'"
)
