package redsys

import "strings"

// Describe returns the human-readable description for a SIS response code, or
// "unknown" when the code is not in the table. Purely descriptive data; the
// acceptance rule lives in responseAuthorized.
func Describe(code string) string {
	if desc, ok := responseDescriptions[normalizeCode(code)]; ok {
		return desc
	}
	return "unknown"
}

// normalizeCode strips leading zeros so "0101" and "101" hit the same entry.
func normalizeCode(code string) string {
	trimmed := strings.TrimLeft(strings.TrimSpace(code), "0")
	if trimmed == "" {
		return "0"
	}
	return trimmed
}

// responseDescriptions maps SIS response codes to descriptions. Static lookup
// data, never mutated.
var responseDescriptions = map[string]string{
	"0":    "transaction approved",
	"900":  "transaction approved for refunds and confirmations",
	"101":  "expired card",
	"102":  "card temporarily blocked or under suspicion of fraud",
	"104":  "operation not allowed for this card",
	"106":  "PIN attempts exceeded",
	"107":  "contact the card issuer",
	"109":  "invalid merchant or terminal identification",
	"110":  "invalid amount",
	"114":  "operation not allowed for this card type",
	"116":  "insufficient funds",
	"118":  "card not registered",
	"125":  "card not effective",
	"129":  "wrong security code (CVV2/CVC2)",
	"167":  "contact the card issuer: suspected fraud",
	"180":  "card outside the service",
	"181":  "card blocked for debit operations",
	"182":  "card blocked for credit operations",
	"184":  "cardholder authentication error",
	"190":  "issuer declined without a reason",
	"191":  "wrong expiry date",
	"195":  "the card requires SCA authentication",
	"202":  "card blocked under suspicion of fraud, card withheld",
	"904":  "merchant not registered with the FUC",
	"909":  "system error",
	"913":  "duplicate order",
	"944":  "wrong session",
	"950":  "refund operation not allowed",
	"9051": "repeated order",
	"9064": "wrong number of card positions",
	"9078": "operation type not allowed for this card",
	"9093": "card does not exist",
	"9094": "international servers declined the operation",
	"9104": "merchant with secure cardholder and cardholder without secure purchase key",
	"9142": "payment time limit exceeded",
	"9218": "the merchant does not allow secure operations per entry",
	"9221": "the security code is mandatory",
	"9253": "card does not pass the check digit",
	"9256": "the merchant cannot run pre-authorisations",
	"9257": "this card does not allow pre-authorisations",
	"9261": "operation stopped for exceeding the control restrictions",
	"9912": "issuer not available",
	"9913": "error in the confirmation sent to the merchant",
	"9914": "KO confirmation from the merchant",
	"9915": "payment cancelled by the user",
	"9928": "deferred pre-authorisation cancelled by the system",
	"9929": "deferred pre-authorisation cancelled by the merchant",
	"9997": "another operation is being processed for the same card",
	"9998": "operation in card-data request state",
	"9999": "operation redirected to the issuer for authentication",
}
