package llm

// SystemPrompt frames every conversation with the assistant.
const SystemPrompt = "You are HealthGenie, a friendly AI health assistant. Give clear, empathetic, practical health information " +
	"in plain language. Suggest actionable steps when they help, and always recommend seeing a healthcare professional " +
	"for anything serious, persistent or urgent. You do not diagnose."

// SummarizePrompt asks for a patient-friendly summary of a medical document.
const SummarizePrompt = "Summarise the following medical document in simple, patient-friendly language. Cover:\n" +
	"- key findings or results\n" +
	"- anything that looks concerning and needs attention\n" +
	"- recommended actions or follow-ups\n" +
	"- important dates or appointments\n\n" +
	"Document text:\n%s"

// InsightsPrompt asks for tailored wellness tips.
const InsightsPrompt = "Using the user's profile and recent symptoms below, give personalised, specific and actionable tips for:\n" +
	"1. Nutrition\n2. Sleep hygiene\n3. Hydration\n4. Physical activity\n\n%s"

// PatternPrompt asks for an analysis of recently logged symptoms.
const PatternPrompt = "Analyse these recently logged symptoms for patterns:\n%s\n\n" +
	"Point out recurring symptoms, possible triggers, what to keep tracking, and when to consult a doctor."

// ClassifierPrompt turns the model into a binary symptom-report classifier.
const ClassifierPrompt = "Decide whether the user's message reports a symptom they are experiencing. " +
	"Reply with exactly one label: symptom or other."
