package llm

import "strings"

// categoryHints maps expense categories to merchant keywords commonly seen in
// statement descriptions. Guidance only; the model uses its own judgment for
// anything not listed.
var categoryHints = []struct {
	category string
	examples string
}{
	{"Grocery", "swiggy instamart, zepto, AMAZON.IN - GROCER, Bundl Technologies, LULU VALUE MART, Avenue Supermarts, MAX HYPERMARKET"},
	{"Mobile-internet", "RELIANCE JIO INFOCOMM"},
	{"Food-order", "Swiggy Limited IN, BUNDL TECHNOLOGIES"},
	{"Holidays", "Makemytrip India Pvt, IBIBO GROUP PVT"},
	{"Travel", "Bangalore Metro Rail"},
	{"Taxi", "Uber, Ola, Rapido, Namma Yatri"},
	{"Petrol", "fuel stations"},
	{"Subscriptions", "NETFLIX, GOOGLE WORKSPACE, apple services"},
	{"Clothing", "Myntra, Ajio, SHOPPERS STOP, ZUDIO, WESTSIDE, pantaloons"},
	{"Childcare", "school, skating, toy, first cry, HAMLEYS, FUNCITY"},
}

// BuildExtractionPrompt renders the provider-agnostic extraction instruction
// for a statement's text and the caller-supplied category lists. Pure
// function; the exact contract here is what the parser and classifier are
// allowed to assume about the response.
func BuildExtractionPrompt(text string, expenseCategories, incomeCategories []string) string {
	var b strings.Builder

	b.WriteString("Analyze the following financial statement text and extract all expense and income transactions.\n")
	b.WriteString("This includes regular purchases, refunds, income deposits, and payments made to credit cards.\n\n")

	b.WriteString("Output a single JSON object with one key, \"transactions\", whose value is an array of transaction objects.\n")
	b.WriteString("Each object must have these exact keys: \"date\", \"description\", \"amount\", \"direction\" (either \"debit\" or \"credit\"), \"category\", and \"isPayment\" (a boolean).\n\n")

	b.WriteString("The \"date\" must be in \"YYYY-MM-DD\" format. Formats like \"DD-MM-YYYY\" or \"MM-DD-YYYY\" are not acceptable.\n")
	b.WriteString("\"debit\" means money spent or transferred out. \"credit\" means money received or returned.\n")
	b.WriteString("If the statement shows a running balance, use it to disambiguate: a balance decrease means \"debit\", an increase means \"credit\".\n\n")

	b.WriteString("For \"debit\" transactions, \"category\" MUST be one of: [")
	b.WriteString(strings.Join(expenseCategories, ", "))
	b.WriteString("].\n")
	b.WriteString("For \"credit\" transactions that are income (salary, dividends, refunds of nothing you purchased), \"category\" MUST be one of: [")
	b.WriteString(strings.Join(incomeCategories, ", "))
	b.WriteString("].\n")
	b.WriteString("For \"credit\" transactions that refund an earlier purchase, keep the original expense category.\n")
	b.WriteString("For credit card bill payments, use the category \"" + PaymentCategory + "\".\n\n")

	b.WriteString("Set \"isPayment\" to true only when the transaction is a credit card bill payment")
	b.WriteString(" (descriptions may include 'Payment Received, Thank You', 'payment towards card', 'credit card payment', 'Autodebit Payment Recd'),")
	b.WriteString(" and false for purchases, income, and refunds.\n")
	b.WriteString("On bank statements, credits are often income. On credit card statements, credits are payments or refunds; extract both and mark payments with \"isPayment\".\n\n")

	b.WriteString("Categorization hints (guidelines only; use your best judgment otherwise):\n")
	for _, h := range categoryHints {
		b.WriteString("- " + h.category + ": " + h.examples + "\n")
	}
	b.WriteString("\n")

	b.WriteString("Amounts are always positive, in 2 decimal format, e.g. 123.45. An amount can't be larger than 1000000.\n")
	b.WriteString("A reward points column may appear next to the amount column; ignore it.\n")
	b.WriteString("If a value is not present, use null.\n")
	b.WriteString("Text:\n---\n")
	b.WriteString(text)
	b.WriteString("\n---\n")

	return b.String()
}

// buildRepairPrompt asks the backend for a corrected rendering of a malformed
// response. Issued at most once per extraction.
func buildRepairPrompt(malformed string) string {
	var b strings.Builder
	b.WriteString("The following text was supposed to be a single valid JSON object with one key, \"transactions\", containing an array of transaction objects, but it is not valid JSON.\n")
	b.WriteString("Return ONLY the corrected, valid JSON object. No commentary, no code fences.\n")
	b.WriteString("Text:\n---\n")
	b.WriteString(malformed)
	b.WriteString("\n---\n")
	return b.String()
}
