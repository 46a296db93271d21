package pipeline

import (
	"encoding/json"
	"fmt"
)

// extractionPrompt is sent ahead of the uploaded statement files.
const extractionPrompt = `Analyze the attached bank statement PDF and extract the following information:
1. Account holder's name.
2. Starting and ending date of the expense period.
3. Beginning and ending balance.
4. All transactions, including:
   - Bank name (if available)
   - Date (format: DD/MM/YYYY)
   - Description
   - Ref No. or Cheque No. or Instrument ID
   - Amount
   - Whether it's a credit or debit (as 'category')
   - Balance after transaction
   - AI-generated category (like food, travel, petrol, etc.) based on the description.
5. Provide a summary of the expense analysis, like remaining balance, highest expense, recurring expenses, etc.
   Also add a short summary of the expense analysis in the beginning.

Return this data in structured JSON format as per the defined schema.
Remember all the transactions are in INR currency and the amount is in rupees.
If any information is not available, indicate it as "NA" in the respective field.
`

const followUpRules = `Points to Remember:
- Format amounts above 1000 with thousands separators, e.g. 1,000 and 1,938.18.
- If a question is not related to the analysis, say: "I don't have enough information." but find the closest related information from the analysis and provide it.
- Use "/-" instead of "INR" for amounts.
`

// followUpInstruction grounds the follow-up chat in the extracted statement.
func followUpInstruction(statementJSON []byte) string {
	return fmt.Sprintf("You will answer questions based on this JSON bank analysis:\n%s\n%s", statementJSON, followUpRules)
}

func indentJSON(v any) ([]byte, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("indentJSON: %w", err)
	}
	return b, nil
}
