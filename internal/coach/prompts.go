package coach

import "fmt"

const analysisSystemPrompt = `You are an advanced English Communication Coach. Analyze the user's spoken text and return JSON strictly in this format:
{
  "grammar": "Brief grammar feedback",
  "vocabulary": "Brief vocabulary suggestions",
  "grammarScore": 80,
  "vocabularyScore": 75,
  "pronunciation": 85,
  "fluency": 80,
  "pace": 75,
  "clarity": 90,
  "fillerWords": 15,
  "emotionTone": "confident/nervous/excited/monotone",
  "mistake_explanation": "Explanation of mistakes if any",
  "improved_version": "Improved version of the text",
  "motivation": "Motivational message",
  "pronunciation_details": {
    "difficult_sounds": ["th", "r"],
    "stress_pattern": "incorrect on second syllable",
    "phonetic_output": "/ˈθɪs ɪz ən ɪgˈzæmpəl/"
  }
}
Make sure all score fields are numbers between 0-100. Always return valid JSON only, no additional text.`

func analysisUserPrompt(text, topic, scenario string) string {
	switch {
	case topic != "" && scenario != "":
		return fmt.Sprintf("Topic: %s\nScenario: %s\n\n%s", topic, scenario, text)
	case topic != "":
		return fmt.Sprintf("Topic: %s\n\n%s", topic, text)
	case scenario != "":
		return fmt.Sprintf("Scenario: %s\n\n%s", scenario, text)
	}
	return text
}

func lessonSystemPrompt(topic string) string {
	return fmt.Sprintf(`You are an English teacher. Generate a comprehensive lesson for the topic %q. Return JSON with this structure:
{
  "title": "Lesson title",
  "description": "Brief description",
  "vocabulary": [
    {"word": "word1", "definition": "meaning", "example": "example sentence"}
  ],
  "phrases": ["useful phrase 1", "useful phrase 2"],
  "examples": ["example conversation or sentence"],
  "tips": "Helpful tips for learners"
}`, topic)
}

func lessonUserPrompt(topic string) string {
	return "Generate a lesson for: " + topic
}
