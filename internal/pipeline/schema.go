package pipeline

import "google.golang.org/genai"

// statementSchema is the response schema of the extraction request. Keys
// match domain.Statement.
var statementSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"summary":           {Type: genai.TypeString, Description: "Summary of the expense analysis"},
		"account_Name":      {Type: genai.TypeString, Description: "Name of the account holder"},
		"starting_date":     {Type: genai.TypeString, Description: "Starting date of the expense period"},
		"ending_date":       {Type: genai.TypeString, Description: "Ending date of the expense period"},
		"beginning_balance": {Type: genai.TypeNumber, Description: "Beginning balance of the account"},
		"ending_balance":    {Type: genai.TypeNumber, Description: "Ending balance of the account"},
		"transactions": {
			Type:  genai.TypeArray,
			Items: transactionSchema,
		},
	},
	PropertyOrdering: []string{
		"summary", "account_Name", "starting_date", "ending_date",
		"beginning_balance", "ending_balance", "transactions",
	},
}

var transactionSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"bank_Name": {
			Type:        genai.TypeString,
			Description: "Name of the bank from the IFSC or IFS code, or as previously mentioned. Use the abbreviation if available.",
		},
		"date":        {Type: genai.TypeString, Description: "Date of the particular transaction"},
		"description": {Type: genai.TypeString, Description: "Description of the particular transaction"},
		"ref_No":      {Type: genai.TypeString, Description: "Ref No./Cheque No./Instrument ID of the particular transaction"},
		"amount":      {Type: genai.TypeNumber, Description: "Amount of the particular transaction"},
		"ai": {
			Type: genai.TypeString,
			Description: "A suitable category for the transaction based on its description, like petrol or food. " +
				"Go through each word of the description to find the most relevant category. " +
				"If the description is not clear, use a general category like 'other' or 'miscellaneous'. " +
				"If the description includes a shop name or a person name, use that as the category.",
		},
		"category": {
			Type:        genai.TypeString,
			Description: "Category of the particular transaction (credit/debit). CR is credit and DR is debit",
		},
		"balance_after_Transaction": {Type: genai.TypeNumber, Description: "Balance after the particular transaction"},
	},
}
