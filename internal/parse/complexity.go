package parse

import (
	"regexp"
)

var (
	decisionIfRe     = regexp.MustCompile(`(?i)\bIf\b.*\bThen\b`)
	decisionElseIfRe = regexp.MustCompile(`(?i)\bElseIf\b`)
	decisionCaseRe   = regexp.MustCompile(`(?i)\bCase\b`)
	caseElseRe       = regexp.MustCompile(`(?i)\bCase\s+Else\b`)
	decisionForRe    = regexp.MustCompile(`(?i)\bFor\b`)
	decisionDoRe     = regexp.MustCompile(`(?i)\bDo\s+(?:While|Until)\b`)
	decisionWhileRe  = regexp.MustCompile(`(?i)\bWhile\b`)
	decisionAndRe    = regexp.MustCompile(`(?i)\bAnd\b`)
	decisionOrRe     = regexp.MustCompile(`(?i)\bOr\b`)

	nestingStartRe = regexp.MustCompile(`(?i)\b(?:If|For|Do(?:\s+(?:While|Until))?|While|With|Select)\b`)
	nestingEndRe   = regexp.MustCompile(`(?i)\b(?:End\s+If|Next|Loop(?:\s+(?:While|Until))?|Wend|End\s+With|End\s+Select)\b`)
	exitBlockRe    = regexp.MustCompile(`(?i)\bExit\s+(?:For|Do)\b`)
	fileModeRe     = regexp.MustCompile(`(?i)\bFor\s+(?:Input|Output|Append|Binary|Random)\b`)
	singleLineIfRe = regexp.MustCompile(`(?i)\bThen\s+\S`)
)

// Complexity is the McCabe cyclomatic complexity of a routine body: 1 plus
// one per If..Then, ElseIf, Case (not Case Else), For, Do While/Until,
// While, And and Or. Comment lines do not count.
func Complexity(body string) int {
	c := 1
	for _, l := range Lines(body) {
		if l.Comment {
			continue
		}
		t := l.Text
		c += len(decisionIfRe.FindAllStringIndex(t, -1))
		c += len(decisionElseIfRe.FindAllStringIndex(t, -1))
		c += len(decisionCaseRe.FindAllStringIndex(t, -1)) - len(caseElseRe.FindAllStringIndex(t, -1))
		c += len(decisionForRe.FindAllStringIndex(t, -1))
		c += len(decisionDoRe.FindAllStringIndex(t, -1))
		c += len(decisionWhileRe.FindAllStringIndex(t, -1))
		c += len(decisionAndRe.FindAllStringIndex(t, -1))
		c += len(decisionOrRe.FindAllStringIndex(t, -1))
	}
	return c
}

// MaxNesting estimates the deepest block nesting in text. Closers such as
// End If are not openers, Do While is one block, and single-line If
// statements and Exit For/Do do not open anything.
func MaxNesting(text string) int {
	depth, maxDepth := 0, 0
	for _, l := range Lines(text) {
		if l.Comment {
			continue
		}
		code := stripStrings(l.Text)
		singleIf := singleLineIfRe.MatchString(code)

		ends := len(nestingEndRe.FindAllStringIndex(code, -1))
		code = nestingEndRe.ReplaceAllString(code, " ")
		code = exitBlockRe.ReplaceAllString(code, " ")
		code = fileModeRe.ReplaceAllString(code, " ")

		starts := len(nestingStartRe.FindAllStringIndex(code, -1))
		if singleIf && starts > 0 {
			starts--
		}

		depth += starts
		if depth > maxDepth {
			maxDepth = depth
		}
		depth -= ends
		if depth < 0 {
			depth = 0
		}
	}
	return maxDepth
}
