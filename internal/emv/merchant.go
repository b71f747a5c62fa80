package emv

// MerchantAccount is the bank-transfer form of a merchant account information
// template: a country code, an account identifier and a terminal identifier.
//
// Terminal must identify the point of sale, not the sale. Per-transaction
// references belong in the additional data field.
type MerchantAccount struct {
	Country  string
	Account  string
	Terminal string
}

// Template returns the subfields, omitting empty ones.
func (m MerchantAccount) Template() Template {
	var t Template
	if m.Country != "" {
		t = append(t, NewSubfield(SubCountry, m.Country))
	}
	if m.Account != "" {
		t = append(t, NewSubfield(SubAccount, m.Account))
	}
	if m.Terminal != "" {
		t = append(t, NewSubfield(SubTerminal, m.Terminal))
	}
	return t
}

// Field encodes the account as the top-level field id.
func (m MerchantAccount) Field(id string) (Field, error) {
	return TemplateField(id, m.Template())
}

// ReadMerchantAccount extracts the bank-transfer subfields from a decoded
// merchant account template.
func ReadMerchantAccount(t Template) MerchantAccount {
	var m MerchantAccount
	if s, ok := t.Find(SubCountry); ok {
		m.Country = s.Value
	}
	if s, ok := t.Find(SubAccount); ok {
		m.Account = s.Value
	}
	if s, ok := t.Find(SubTerminal); ok {
		m.Terminal = s.Value
	}
	return m
}
