package model

// Severity represents how much a finding affects correct text rendering.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type Severity int

const (
	// SeverityInfo indicates informational findings with no rendering impact.
	// Example: the declared label is not a known encoding name.
	SeverityInfo Severity = iota

	// SeverityLow indicates minor issues with limited impact.
	// Example: the encoding is only signalled by a byte-order mark.
	SeverityLow

	// SeverityMedium indicates issues that can cause mis-rendered text.
	// Example: no charset declaration at all.
	SeverityMedium

	// SeverityHigh indicates issues that usually break rendering.
	SeverityHigh

	// SeverityCritical indicates the document could not be audited at all.
	SeverityCritical
)

// String returns a human-readable representation of the severity level.
func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityLow:
		return "LOW"
	case SeverityMedium:
		return "MEDIUM"
	case SeverityHigh:
		return "HIGH"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// Finding type identifiers produced by the audits.
const (
	FindingCharsetUndeclared    = "charset_undeclared"
	FindingCharsetBOMOnly       = "charset_bom_only"
	FindingCharsetUnknownLabel  = "charset_unknown_label"
	FindingCharsetMetaLate      = "charset_meta_outside_window"
	FindingMainResourceNotFound = "main_resource_not_found"
	FindingDocumentBodyMissing  = "document_body_missing"
)

// FindingInfo contains metadata about a finding type including severity,
// impact description, and remediation recommendation.
type FindingInfo struct {
	Severity       Severity
	Impact         string
	Recommendation string
}

// findingInfoMapping maps finding types to their metadata.
// This centralized mapping keeps risk assessment consistent across audits and reports.
var findingInfoMapping = map[string]FindingInfo{
	FindingMainResourceNotFound: {
		Severity:       SeverityCritical,
		Impact:         "The main document response could not be located, so the page could not be audited.",
		Recommendation: "Check that the URL is reachable and that the network log contains the navigation request.",
	},
	FindingCharsetUndeclared: {
		Severity:       SeverityMedium,
		Impact:         "Without a declared character encoding the browser has to guess, which can render text incorrectly and open cross-site scripting vectors.",
		Recommendation: "Send a Content-Type header with a charset parameter, or add <meta charset=\"utf-8\"> within the first 1024 bytes of the document.",
	},
	FindingCharsetMetaLate: {
		Severity:       SeverityMedium,
		Impact:         "A <meta> charset declaration exists but starts or ends after the first 1024 bytes, where browsers stop looking for it.",
		Recommendation: "Move the <meta charset> element to the very top of <head>.",
	},
	FindingCharsetBOMOnly: {
		Severity:       SeverityLow,
		Impact:         "The encoding is only signalled by a byte-order mark, which is easily lost when content is edited or concatenated.",
		Recommendation: "Also declare the charset in the Content-Type header or a <meta charset> element.",
	},
	FindingDocumentBodyMissing: {
		Severity:       SeverityInfo,
		Impact:         "The network log holds no document text, so byte-order mark and <meta> declarations could not be checked.",
		Recommendation: "Record the log with response content included to audit the document itself.",
	},
	FindingCharsetUnknownLabel: {
		Severity:       SeverityInfo,
		Impact:         "The declared charset label is not a standard encoding name; browsers may ignore it.",
		Recommendation: "Use a standard label such as \"utf-8\".",
	},
}

// GetSeverity returns the severity level for a finding type.
// Returns SeverityInfo if the finding type is not in the mapping.
func GetSeverity(findingType string) Severity {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info.Severity
	}
	return SeverityInfo
}

// GetFindingInfo returns the full finding information for a finding type.
// Returns a default FindingInfo with SeverityInfo if the type is not in the mapping.
func GetFindingInfo(findingType string) FindingInfo {
	if info, ok := findingInfoMapping[findingType]; ok {
		return info
	}
	return FindingInfo{
		Severity:       SeverityInfo,
		Impact:         "Unknown finding type. Review manually.",
		Recommendation: "Investigate the finding and assess its impact.",
	}
}

// NewFinding builds a Finding for a known finding type, filling severity,
// impact and recommendation from the catalogue.
func NewFinding(findingType, title, description, value, location string) Finding {
	info := GetFindingInfo(findingType)
	return Finding{
		Type:           findingType,
		Title:          title,
		Description:    description,
		Severity:       info.Severity,
		SeverityText:   info.Severity.String(),
		Impact:         info.Impact,
		Recommendation: info.Recommendation,
		Value:          value,
		Location:       location,
	}
}
