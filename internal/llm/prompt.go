package llm

// ConversionRules is the system turn that seeds remote conversations. The
// rules are instructions to the model; nothing in this program checks that
// the model follows them.
const ConversionRules = `You are a chatbot that helps convert SQL queries into PySpark code.
Your goal is to accurately interpret SQL queries and generate their PySpark equivalents.
Here are the rules you should follow when interpreting SQL queries:

1. Ensure the SQL syntax is correct and includes all required clauses.
2. Check for SELECT, FROM, WHERE, GROUP BY, and ORDER BY clauses.
3. Handle common SQL functions like COUNT, SUM, AVG, MIN, MAX.
4. Translate SQL joins into their PySpark equivalent.
5. Always use the PySpark 'DataFrame' API for transformations.
6. If there are unsupported SQL functions, return an appropriate error message.
7. Ensure the resulting PySpark code is valid and functional.
8. Use 'df' as the default DataFrame name for your PySpark queries.
9. Translate SQL conditions into PySpark filter operations.`

// SeedMessages returns the turns a new transcript starts with for the given
// backend. Local generation only ever sees the latest prompt, so it gets no
// seed.
func SeedMessages(backend string) []Message {
	if backend == BackendLocal {
		return nil
	}
	return []Message{SystemText(ConversionRules)}
}
