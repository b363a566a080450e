// pkg/model/partner.go
package model

// Partner describes one dropshipper: an external order source with its own
// file layout and shipping account.
type Partner struct {
	ID   int
	Name string
	Code string

	// UsesHouseShipping mirrors the partner's stored shipping-account
	// flag. Shipping eligibility does not consult it; the excluded-state
	// filter applies to every order.
	UsesHouseShipping bool

	// InboundFolder is the partner's folder on the remote file source.
	InboundFolder string

	// HeaderTemplate is the exact canonical column sequence the partner's
	// files must present after alias resolution.
	HeaderTemplate []string

	// PONumberColumn is the partner's raw header name for the purchase
	// order number column, used when extracting order numbers from a file.
	PONumberColumn string
}

// HeaderAliasMap maps a canonical field name to the partner-specific
// variant names that resolve to it. Variants are matched case-sensitively,
// in declaration order, after whitespace has been stripped from the source
// header row.
type HeaderAliasMap map[string][]string

// CountryKey identifies a country by its three stored name forms.
type CountryKey struct {
	Name        string
	TwoLetter   string
	ThreeLetter string
}

// CountryStateIndex maps a country to its state-name -> state-code table.
type CountryStateIndex map[CountryKey]map[string]string
