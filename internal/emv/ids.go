package emv

// Top-level field ids with fixed meaning.
const (
	IDPayloadFormat    = "00"
	IDInitiationMethod = "01"
	IDMerchantCategory = "52"
	IDCurrency         = "53"
	IDAmount           = "54"
	IDTipIndicator     = "55"
	IDFeeFixed         = "56"
	IDFeePercentage    = "57"
	IDCountry          = "58"
	IDMerchantName     = "59"
	IDMerchantCity     = "60"
	IDPostalCode       = "61"
	IDAdditionalData   = "62"
	IDCRC              = "63"
	IDLanguage         = "64"
)

// Merchant account information subfields used by bank-transfer schemes.
const (
	SubCountry  = "00"
	SubAccount  = "01"
	SubTerminal = "02"
)

// Additional data field template subfields.
const (
	SubBillNumber     = "01"
	SubMobileNumber   = "02"
	SubStoreLabel     = "03"
	SubLoyaltyNumber  = "04"
	SubReferenceLabel = "05"
	SubCustomerLabel  = "06"
	SubTerminalLabel  = "07"
	SubPurpose        = "08"
	SubConsumerData   = "09"
)

// Kind is the semantic class of a top-level field id.
type Kind int

const (
	Unknown Kind = iota
	PayloadFormatIndicator
	PointOfInitiationMethod
	MerchantAccountPrimitive // 02-25, reserved for card schemes.
	MerchantAccountTemplate  // 26-51.
	MerchantCategoryCode
	TransactionCurrency
	TransactionAmount
	TipOrConvenienceIndicator
	ConvenienceFeeFixed
	ConvenienceFeePercentage
	CountryCode
	MerchantName
	MerchantCity
	PostalCode
	AdditionalDataTemplate
	CRC
	MerchantLanguageTemplate
	ReservedForFutureUse // 65-79.
	UnreservedTemplate   // 80-99.
)

var kindNames = map[Kind]string{
	Unknown:                   "Unknown",
	PayloadFormatIndicator:    "Payload Format Indicator",
	PointOfInitiationMethod:   "Point of Initiation Method",
	MerchantAccountPrimitive:  "Merchant Account Information",
	MerchantAccountTemplate:   "Merchant Account Information",
	MerchantCategoryCode:      "Merchant Category Code",
	TransactionCurrency:       "Transaction Currency",
	TransactionAmount:         "Transaction Amount",
	TipOrConvenienceIndicator: "Tip or Convenience Indicator",
	ConvenienceFeeFixed:       "Value of Convenience Fee Fixed",
	ConvenienceFeePercentage:  "Value of Convenience Fee Percentage",
	CountryCode:               "Country Code",
	MerchantName:              "Merchant Name",
	MerchantCity:              "Merchant City",
	PostalCode:                "Postal Code",
	AdditionalDataTemplate:    "Additional Data Field Template",
	CRC:                       "CRC",
	MerchantLanguageTemplate:  "Merchant Information - Language Template",
	ReservedForFutureUse:      "RFU for EMVCo",
	UnreservedTemplate:        "Unreserved Template",
}

var fixedKinds = map[string]Kind{
	IDPayloadFormat:    PayloadFormatIndicator,
	IDInitiationMethod: PointOfInitiationMethod,
	IDMerchantCategory: MerchantCategoryCode,
	IDCurrency:         TransactionCurrency,
	IDAmount:           TransactionAmount,
	IDTipIndicator:     TipOrConvenienceIndicator,
	IDFeeFixed:         ConvenienceFeeFixed,
	IDFeePercentage:    ConvenienceFeePercentage,
	IDCountry:          CountryCode,
	IDMerchantName:     MerchantName,
	IDMerchantCity:     MerchantCity,
	IDPostalCode:       PostalCode,
	IDAdditionalData:   AdditionalDataTemplate,
	IDCRC:              CRC,
	IDLanguage:         MerchantLanguageTemplate,
}

// Lookup classifies a top-level id. Anything that is not a 2-digit decimal id
// is Unknown.
func Lookup(id string) Kind {
	if k, ok := fixedKinds[id]; ok {
		return k
	}
	n, ok := idNumber(id)
	if !ok {
		return Unknown
	}
	switch {
	case n >= 2 && n <= 25:
		return MerchantAccountPrimitive
	case n >= 26 && n <= 51:
		return MerchantAccountTemplate
	case n >= 65 && n <= 79:
		return ReservedForFutureUse
	case n >= 80 && n <= 99:
		return UnreservedTemplate
	}
	return Unknown
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return kindNames[Unknown]
}

// IsTemplate reports whether fields of this kind carry nested subfields.
func (k Kind) IsTemplate() bool {
	switch k {
	case MerchantAccountTemplate, AdditionalDataTemplate, MerchantLanguageTemplate, UnreservedTemplate:
		return true
	}
	return false
}

// IsMerchantAccount reports whether the kind is merchant account information.
func (k Kind) IsMerchantAccount() bool {
	return k == MerchantAccountPrimitive || k == MerchantAccountTemplate
}

// Name returns the human-readable name of a top-level id.
func Name(id string) string { return Lookup(id).String() }

var subfieldNames = map[Kind]map[string]string{
	MerchantAccountTemplate: {
		SubCountry:  "Globally Unique Identifier",
		SubAccount:  "Account Identifier",
		SubTerminal: "Terminal Identifier",
	},
	AdditionalDataTemplate: {
		SubBillNumber:     "Bill Number",
		SubMobileNumber:   "Mobile Number",
		SubStoreLabel:     "Store Label",
		SubLoyaltyNumber:  "Loyalty Number",
		SubReferenceLabel: "Reference Label",
		SubCustomerLabel:  "Customer Label",
		SubTerminalLabel:  "Terminal Label",
		SubPurpose:        "Purpose of Transaction",
		SubConsumerData:   "Additional Consumer Data Request",
	},
	MerchantLanguageTemplate: {
		"00": "Language Preference",
		"01": "Merchant Name - Alternate Language",
		"02": "Merchant City - Alternate Language",
	},
	UnreservedTemplate: {
		"00": "Globally Unique Identifier",
	},
}

// SubfieldName names a subfield of a template of the given kind.
func SubfieldName(parent Kind, id string) string {
	if names, ok := subfieldNames[parent]; ok {
		if s, ok := names[id]; ok {
			return s
		}
	}
	if parent == AdditionalDataTemplate {
		if n, ok := idNumber(id); ok && n >= 50 {
			return "Payment System Specific"
		}
		return "RFU for EMVCo"
	}
	if parent == MerchantAccountTemplate || parent == UnreservedTemplate {
		return "Payment Network Specific"
	}
	return "Unknown"
}

func idNumber(id string) (int, bool) {
	if !IsNumeric(id) || len(id) != 2 {
		return 0, false
	}
	return int(id[0]-'0')*10 + int(id[1]-'0'), true
}

// IsNumeric reports whether s is a non-empty run of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
