package domain

// DebitCreditCode marks the direction of a statement line.
type DebitCreditCode string

const (
	DebitCreditCodeCredit DebitCreditCode = "C"
	DebitCreditCodeDebit  DebitCreditCode = "D"
)

// FeedTransaction is one statement line as reported by the bank feed.
// SeqNo and Amount are kept in their textual form; the feed sends either
// strings or numbers for both.
type FeedTransaction struct {
	SeqNo       string          `json:"SeqNo"`
	PostingDate string          `json:"PostingDate"`
	Amount      string          `json:"Amount"`
	DorCCode    DebitCreditCode `json:"DorCCode"`
	Description string          `json:"Description,omitempty"`
	Remark      string          `json:"Remark,omitempty"`
}

// IsCredit returns true for incoming money.
func (t *FeedTransaction) IsCredit() bool {
	return t.DorCCode == DebitCreditCodeCredit
}

// Memo returns the free-text field the payer typed: Description, falling back
// to Remark when Description is empty. A whitespace-only Description is kept.
func (t *FeedTransaction) Memo() string {
	if t.Description != "" {
		return t.Description
	}
	return t.Remark
}

// Fingerprint identifies the line across feed fetches.
func (t *FeedTransaction) Fingerprint() Fingerprint {
	return NewFingerprint(t.SeqNo, t.PostingDate)
}

// Fingerprint is the stable identity of a bank transaction: "<SeqNo>-<PostingDate>".
type Fingerprint string

// NewFingerprint builds a fingerprint from its two components.
func NewFingerprint(seqNo, postingDate string) Fingerprint {
	return Fingerprint(seqNo + "-" + postingDate)
}

// LedgerNote is the human-readable note stored on the ledger entry.
func (f Fingerprint) LedgerNote() string {
	return "Bank: " + string(f)
}

func (f Fingerprint) String() string {
	return string(f)
}
