package notionsync

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jomei/notionapi"

	"github.com/dvloznov/imagexbot/internal/domain"
)

// Property names of the transactions database.
const (
	PropDescription   = "Description"
	PropTransactionID = "Transaction ID"
	PropAccount       = "Account"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropBank          = "Bank"
	PropRefNo         = "Ref No"
	PropBalanceAfter  = "Balance After"
)

// exportNamespace scopes the deterministic transaction ids.
var exportNamespace = uuid.MustParse("6f1d8a52-3c1e-4b7a-9c54-1f0d2e7b9a10")

// statementDateLayouts are the date formats the extraction prompt asks for,
// plus the unpadded variant the model sometimes emits.
var statementDateLayouts = []string{"02/01/2006", "2/1/2006", "2006-01-02"}

// TransactionID derives a stable id from the transaction's content so that
// exporting the same statement twice creates no duplicates.
func TransactionID(account domain.Text, tx domain.Transaction) string {
	tx.Normalize()
	if !account.Available() {
		account = domain.NotAvailable
	}
	key := strings.Join([]string{
		string(account),
		string(tx.Date),
		string(tx.RefNo),
		string(tx.Description),
		tx.Amount.String(),
		tx.BalanceAfter.String(),
	}, "|")
	return uuid.NewSHA1(exportNamespace, []byte(key)).String()
}

// ParseStatementDate parses a transaction date. ok is false for "NA" and
// unknown formats.
func ParseStatementDate(s domain.Text) (time.Time, bool) {
	if !s.Available() {
		return time.Time{}, false
	}
	for _, layout := range statementDateLayouts {
		if t, err := time.Parse(layout, strings.TrimSpace(string(s))); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TransactionToNotionProperties converts a statement transaction to page
// properties. Fields the model could not find are left out.
func TransactionToNotionProperties(account domain.Text, tx domain.Transaction) notionapi.Properties {
	title := string(tx.Description)
	if !tx.Description.Available() {
		title = "Transaction"
	}

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{
			Title: []notionapi.RichText{richText(title)},
		},
		PropTransactionID: notionapi.RichTextProperty{
			RichText: []notionapi.RichText{richText(TransactionID(account, tx))},
		},
	}

	if account.Available() {
		props[PropAccount] = notionapi.RichTextProperty{RichText: []notionapi.RichText{richText(string(account))}}
	}
	if d, ok := ParseStatementDate(tx.Date); ok {
		date := notionapi.Date(d)
		props[PropDate] = notionapi.DateProperty{Date: &notionapi.DateObject{Start: &date}}
	}
	if tx.Amount.Valid {
		props[PropAmount] = notionapi.NumberProperty{Number: tx.Amount.Value}
	}
	if tx.BalanceAfter.Valid {
		props[PropBalanceAfter] = notionapi.NumberProperty{Number: tx.BalanceAfter.Value}
	}
	if tx.Category.Available() {
		kind := "debit"
		if tx.IsCredit() {
			kind = "credit"
		}
		props[PropType] = notionapi.SelectProperty{Select: notionapi.Option{Name: kind}}
	}
	if tx.AICategory.Available() {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: selectName(string(tx.AICategory))}}
	}
	if tx.BankName.Available() {
		props[PropBank] = notionapi.SelectProperty{Select: notionapi.Option{Name: selectName(string(tx.BankName))}}
	}
	if tx.RefNo.Available() {
		props[PropRefNo] = notionapi.RichTextProperty{RichText: []notionapi.RichText{richText(string(tx.RefNo))}}
	}

	return props
}

func richText(s string) notionapi.RichText {
	return notionapi.RichText{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}
}

// selectName trims a select option to what the API accepts: no commas and
// at most 100 characters.
func selectName(s string) string {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", " "))
	if r := []rune(s); len(r) > 100 {
		s = string(r[:100])
	}
	return s
}

// extractTransactionID reads the Transaction ID property of a page.
func extractTransactionID(page notionapi.Page) string {
	if prop, ok := page.Properties[PropTransactionID]; ok {
		if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
			if rt.RichText[0].PlainText != "" {
				return rt.RichText[0].PlainText
			}
			if rt.RichText[0].Text != nil {
				return rt.RichText[0].Text.Content
			}
		}
	}
	return ""
}
