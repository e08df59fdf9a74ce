package frontdesk

// Severity tags an operator-facing notice.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
	SeverityInfo    Severity = "info"
)

// Notice is the human-readable outcome of an operator action.
type Notice struct {
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

func success(msg string) Notice { return Notice{Message: msg, Severity: SeveritySuccess} }
func failure(msg string) Notice { return Notice{Message: msg, Severity: SeverityError} }
func info(msg string) Notice    { return Notice{Message: msg, Severity: SeverityInfo} }
