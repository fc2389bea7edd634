package audit

import (
	"strings"

	"github.com/phobologic/vbscan/internal/model"
)

// Suite names.
const (
	SuiteSecurity = "security"
	SuiteA11y     = "a11y"
)

var (
	scriptExts = []string{".ts", ".js"}
	configExts = []string{".ts", ".js", ".json"}
)

// SecurityRules flag OWASP-style hazards in the migrated front end and back end.
var SecurityRules = []Rule{
	{
		ID: "SEC-001", Name: "Unsafe innerHTML usage", Suite: SuiteSecurity, Severity: model.Critical,
		Patterns:    []Pattern{pat(`innerHTML\s*=`), pat(`bypassSecurityTrustHtml`), pat(`\[innerHTML\]\s*=`)},
		Extensions:  []string{".ts", ".html"},
		Description: "Using innerHTML with dynamic content allows XSS attacks",
		Fix:         "Use Angular text binding [innerText] or DomSanitizer",
	},
	{
		ID: "SEC-002", Name: "eval() or Function constructor", Suite: SuiteSecurity, Severity: model.Critical,
		Patterns:    []Pattern{pat(`\beval\s*\(`), pat(`new\s+Function\s*\(`), pat(`setTimeout\s*\(\s*["']`)},
		Extensions:  scriptExts,
		Description: "eval() allows arbitrary code execution",
		Fix:         "Refactor to avoid dynamic code evaluation",
	},
	{
		ID: "SEC-003", Name: "Hardcoded secrets", Suite: SuiteSecurity, Severity: model.Critical,
		Patterns: []Pattern{
			pat(`(?:password|secret|api_?key|token)\s*[:=]\s*["'][^"']{8,}["']`),
			pat(`Bearer\s+[A-Za-z0-9\-._~+/]+=*`),
		},
		Extensions:  configExts,
		Description: "Secrets should never be hardcoded in source",
		Fix:         "Use environment variables via process.env or .env files",
	},
	{
		ID: "SEC-004", Name: "Raw SQL queries", Suite: SuiteSecurity, Severity: model.Critical,
		Patterns:    []Pattern{pat(`\$queryRaw`), pat(`\$executeRaw`), pat("\\.query\\s*\\(\\s*[`\"'].*\\+"), pat(`db\.run\s*\(`)},
		Extensions:  scriptExts,
		Description: "Raw SQL is vulnerable to injection attacks",
		Fix:         "Use Prisma ORM methods exclusively",
	},
	{
		ID: "SEC-005", Name: "CORS wildcard in production", Suite: SuiteSecurity, Severity: model.Critical,
		Patterns:    []Pattern{pat(`origin\s*:\s*["']?\*["']?`), pat(`cors\(\s*\)`)},
		Extensions:  scriptExts,
		Description: "Wildcard CORS allows any origin to access the API",
		Fix:         "Specify allowed origins explicitly",
	},
	{
		ID: "SEC-006", Name: "JWT without expiration", Suite: SuiteSecurity, Severity: model.Critical,
		Patterns:    []Pattern{vetoed(`jwt\.sign\s*\(`, withoutExpiry)},
		Extensions:  scriptExts,
		Description: "JWT tokens without expiration never expire",
		Fix:         "Add expiresIn option to jwt.sign()",
	},
	{
		ID: "SEC-007", Name: "Logging sensitive data", Suite: SuiteSecurity, Severity: model.Critical,
		Patterns:    []Pattern{pat(`console\.log\s*\(.*(?:password|token|secret|credential)`), pat(`logger\.info\s*\(.*password`)},
		Extensions:  scriptExts,
		Description: "Logging passwords or tokens exposes them in logs",
		Fix:         "Never log sensitive fields; redact if necessary",
	},
	{
		ID: "SEC-008", Name: "HTTP in production config", Suite: SuiteSecurity, Severity: model.Critical,
		Patterns:    []Pattern{vetoed(`http://`, remoteHost)},
		Extensions:  configExts,
		Description: "HTTP URLs in production are unencrypted",
		Fix:         "Use HTTPS for all production URLs",
	},
	{
		ID: "SEC-W01", Name: "Missing input validation", Suite: SuiteSecurity, Severity: model.Medium,
		Check: Dependency, Package: "express-validator",
		Description: "Backend endpoints should validate all input",
	},
	{
		ID: "SEC-W02", Name: "Missing rate limiting", Suite: SuiteSecurity, Severity: model.Medium,
		Check: Dependency, Package: "express-rate-limit",
		Description: "Auth endpoints should have rate limiting",
	},
	{
		ID: "SEC-W03", Name: "Missing Helmet.js", Suite: SuiteSecurity, Severity: model.Medium,
		Check: Dependency, Package: "helmet",
		Description: "Helmet sets secure HTTP headers",
	},
}

// withoutExpiry accepts a jwt.sign call only when the line never sets expiresIn.
func withoutExpiry(line string, _ []int) bool {
	return !strings.Contains(strings.ToLower(line), "expiresin")
}

var localHosts = []string{"localhost", "127.0.0.1", "0.0.0.0"}

// remoteHost accepts an http:// URL that does not point at the local machine.
func remoteHost(line string, m []int) bool {
	rest := strings.ToLower(line[m[1]:])
	for _, h := range localHosts {
		if strings.HasPrefix(rest, h) {
			return false
		}
	}
	return true
}
