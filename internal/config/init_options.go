package config

// InitializationOptions mirrors the JSON object an editor sends as
// `initializationOptions` in the LSP `initialize` request.
// All fields are optional; zero values mean "unset" and leave the
// underlying default or KDL-derived value untouched.
type InitializationOptions struct {
	JournalFile string                     `json:"journal_file"`
	Formatting  *InitFormattingOptions     `json:"formatting"`
	BeanCheck   *InitBeanCheckOptions      `json:"bean_check"`
}

type InitFormattingOptions struct {
	PrefixWidth           *int `json:"prefix_width"`
	NumWidth              *int `json:"num_width"`
	CurrencyColumn        *int `json:"currency_column"`
	AccountAmountSpacing  *int `json:"account_amount_spacing"`
	NumberCurrencySpacing *int `json:"number_currency_spacing"`
}

type InitBeanCheckOptions struct {
	Method       string `json:"method"`
	BeanCheckCmd string `json:"bean_check_cmd"`
	PythonCmd    string `json:"python_cmd"`
}

// ApplyTo overlays o onto cfg in place. workspaceRoot is used only to
// resolve a relative JournalFile.
func (o *InitializationOptions) ApplyTo(cfg *Config, workspaceRoot string) {
	if o == nil {
		return
	}

	if o.JournalFile != "" {
		if resolved, err := ResolveJournalFile(o.JournalFile, workspaceRoot); err == nil {
			cfg.JournalFile = resolved
		} else {
			cfg.JournalFile = o.JournalFile
		}
	}

	if f := o.Formatting; f != nil {
		if f.PrefixWidth != nil {
			cfg.Formatting.PrefixWidth = *f.PrefixWidth
		}
		if f.NumWidth != nil {
			cfg.Formatting.NumWidth = *f.NumWidth
		}
		if f.CurrencyColumn != nil {
			cfg.Formatting.CurrencyColumn = *f.CurrencyColumn
		}
		if f.AccountAmountSpacing != nil {
			cfg.Formatting.AccountAmountSpacing = *f.AccountAmountSpacing
		}
		if f.NumberCurrencySpacing != nil {
			cfg.Formatting.NumberCurrencySpacing = *f.NumberCurrencySpacing
		}
	}

	if b := o.BeanCheck; b != nil {
		if b.Method != "" {
			cfg.BeanCheck.Method = ValidatorMethod(b.Method)
		}
		if b.BeanCheckCmd != "" {
			cfg.BeanCheck.BeanCheckCmd = b.BeanCheckCmd
		}
		if b.PythonCmd != "" {
			cfg.BeanCheck.PythonCmd = b.PythonCmd
		}
	}
}
