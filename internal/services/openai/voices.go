package openai

import "shortsmith/internal/script"

// voice is a speech voice plus the delivery instructions sent with it.
type voice struct {
	Name         string
	Instructions string
}

var voices = map[script.Speaker]voice{
	script.Cody:     {"coral", "Brazilian, Bright, energetic, neutral accent with playful tones and friendly curiosity. Inquisitive and slightly excitable, genuinely amazed and eager to learn about new things. Very Quick Pace, spontaneous questions with natural enthusiasm, balanced by moments of thoughtful curiosity."},
	script.Felippe:  {"ash", "Brazilian, Bright, energetic, young, neutral accent, sophisticated, with clear articulation. Slightly professorial, speaking with pride and confidence in his vast knowledge, yet always approachable. Clearly articulate Portuguese and technical terms authentically. Very Fast Paced."},
	script.Narrator: {"echo", "Brazilian, Calm, deep, authoritative, neutral accent with clear diction. Warm and engaging storytelling voice, conveying trust and reliability. Very fast pace with dramatic pauses for emphasis, drawing listeners into the narrative."},
	script.ChatGPT:  {"alloy", "Brazilian, Friendly, clear, neutral accent with a modern tone. Approachable and helpful, speaking with clarity and patience. Fast pace, ensuring understanding while maintaining engagement."},
	script.Claude:   {"nova", "Brazilian, Calm, thoughtful, neutral accent with a soothing tone. Reflective and measured, speaking with empathy and insight. Fast pace, allowing for contemplation and understanding."},
	script.Gemini:   {"ballad", "Brazilian, Energetic, youthful, neutral accent with a lively tone. Enthusiastic and engaging, speaking with excitement and curiosity. Very Fast Pace, conveying a sense of adventure and discovery."},
	script.Roaster:  {"shimmer", "American English with a mid-range vocal register and slight vocal fry. Cynical and unimpressed but witty and playful, as if texting a best friend. Fast-paced and snappy delivery with strategic pauses before punchlines, emphasizing key words for comedic impact. Natural and conversational, never announcer-like."},
	script.Grok:     {"sage", "Brazilian, Deep, wise, neutral accent with a resonant tone. Authoritative and knowledgeable, speaking with confidence and clarity. Fast pace, delivering insights with precision and depth."},
}

func voiceFor(speaker script.Speaker) voice {
	if v, ok := voices[speaker]; ok {
		return v
	}
	return voices[script.DefaultSpeaker]
}
