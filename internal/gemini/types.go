package gemini

// Part is one piece of message content. Only text parts are used.
type Part struct {
	Text string `json:"text"`
}

// Content is a list of parts with an optional role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// GenerateRequest is the body of a generateContent call.
type GenerateRequest struct {
	Contents []Content `json:"contents"`
}

// Candidate is one generated answer.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// GenerateResponse is the body returned by generateContent.
type GenerateResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// Text returns the text of the first part of the first candidate. It reports
// false when that text is missing or empty.
func (r GenerateResponse) Text() (string, bool) {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return "", false
	}
	text := r.Candidates[0].Content.Parts[0].Text
	return text, text != ""
}
