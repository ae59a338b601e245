package extraction

import "strings"

// PageBreak separates page texts in the aggregated extraction input.
const PageBreak = "\n\n--- Page Break ---\n\n"

const instructions = "You are a financial statement parser. The input is the raw text of every page of one statement " +
	"(bank account, credit card or payment app), with pages separated by \"--- Page Break ---\". " +
	"The text may contain OCR noise, headers, footers and varied date or currency formats.\n\n" +
	"Task:\n" +
	"1. Metadata:\n" +
	"- \"account_holder\": name, email or phone of the owner; \"Unknown\" if absent.\n" +
	"- \"account_number\": account, card or phone number; \"N/A\" if absent.\n" +
	"- \"period_start\", \"period_end\": \"MM/DD/YYYY\"; infer from the first and last transaction if not printed. " +
	"For numeric dates such as 02/03/2025 assume MM/DD/YYYY unless the first value is greater than 12.\n" +
	"- \"beginning_balance\", \"ending_balance\": numbers without thousands separators; 0.0 if absent.\n" +
	"- \"currency_symbol\": the symbol used for amounts (e.g. \"$\", \"£\", \"₹\").\n" +
	"2. Transactions, earliest first, duplicates removed. Each has:\n" +
	"- \"date\": \"MM/DD/YYYY\"\n" +
	"- \"description\": the full narrative text of the line\n" +
	"- \"debit\": amount leaving the account (paid to, sent, purchase, withdrawal), otherwise 0.0\n" +
	"- \"credit\": amount entering the account (received, deposit, refund), otherwise 0.0\n" +
	"- \"balance\": the printed running balance, or 0.0 when the statement has none\n" +
	"3. If a line is ambiguous or malformed (for example, no amount), do NOT add it to \"transactions\". " +
	"Add a short explanation to the top-level \"warnings\" array instead.\n\n" +
	"Never invent data that is not present in the text. Use the defaults above for anything missing.\n\n" +
	"Output ONLY one JSON object with exactly these keys:\n" +
	"{\"account_holder\": string, \"account_number\": string, \"period_start\": string, \"period_end\": string, " +
	"\"beginning_balance\": number, \"ending_balance\": number, \"currency_symbol\": string, " +
	"\"transactions\": [{\"date\": string, \"description\": string, \"debit\": number, \"credit\": number, \"balance\": number}], " +
	"\"warnings\": [string]}\n" +
	"Do NOT wrap the response in code fences.\n"

// BuildPrompt embeds the aggregated document text into the extraction instructions.
func BuildPrompt(documentText string) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\nStatement text:\n---\n")
	b.WriteString(documentText)
	b.WriteString("\n---\n")
	return b.String()
}
