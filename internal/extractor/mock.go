package extractor

import "context"

// MockAnalyzer answers with a fixed analysis of the sample call, in the
// fenced-json shape the prompt asks for.
type MockAnalyzer struct{}

const mockAnalysis = "1. Call Summary: A student from the Windows Foundation batch 42 called to move course access to a new device. The agent took the mobile number, reset the login and the student confirmed it worked.\n" +
	"2. Call Quality Metrics:\n" +
	"```json\n" +
	`{
  "summary": "A student from the Windows Foundation batch 42 called to move course access to a new device. The agent took the mobile number, reset the login and the student confirmed it worked.",
  "Call Duration": "1 minute 40 seconds",
  "Customer Name": "Mayank Sharma",
  "Customer ID/Batch": "Windows Foundation Batch 42",
  "Product/Service": "IAS Preparation Course",
  "Call Reason": "Device change for course access",
  "Problem Resolution Status": "Resolved",
  "Hold Time": "Not specified",
  "Agent Greeting": "हाँ नमस्कार सर",
  "Customer Effort": "Low",
  "Customer Sentiment": "Neutral"
}` + "\n```\n"

func (MockAnalyzer) Analyze(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return mockAnalysis, nil
}
