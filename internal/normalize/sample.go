package normalize

import (
	"strings"
	"unicode/utf8"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// MinSampleLength is the character floor the generation provider requires
// for preview text.
const MinSampleLength = 150

// continuation pads sample text that falls short of [MinSampleLength].
const continuation = " This short preview lets you hear how the voice handles pacing, emphasis and a natural pause."

// Sample templates, keyed by the attribute that selected them. Selection
// priority is character, tone, accent, age group, gender, default.
var (
	characterSamples = map[string]string{
		"narrator":    "The old house at the end of the lane had stood empty for years, until one autumn evening a single candle appeared in the attic window.",
		"villain":     "You really thought you could stop me? How charming. Every move you made was one I planned for you long before you ever arrived.",
		"hero":        "Stand with me. Whatever waits beyond that gate, we face it together, and we do not leave anyone behind.",
		"pirate":      "Hoist the sails and mind the rigging, lads! There's a storm on the horizon and treasure waiting on the other side of it.",
		"wizard":      "Magic is not a tool to be wielded carelessly. It listens, it remembers, and it always asks for something in return.",
		"robot":       "System check complete. All functions are operating within normal parameters. How may I assist you today?",
		"detective":   "The rain hadn't stopped in three days, and neither had the phone calls. Somebody in this city knew more than they were saying.",
		"news anchor": "Good evening. Tonight's top story: city officials have announced a new plan to expand public transport across the region.",
		"teacher":     "Today we are going to explore why the sky looks blue, and by the end of the lesson you will be able to explain it yourself.",
		"assistant":   "Thank you for calling. I'd be happy to help you with your account today. Could you please confirm your name for me?",
		"host":        "Welcome back to the show! We have an incredible lineup for you tonight, so settle in and let's get started.",
	}
	toneSamples = map[string]string{
		"professional":  "Thank you for joining today's briefing. We will review last quarter's results and outline our priorities for the coming months.",
		"energetic":     "Are you ready? Because today is the day we finally make it happen, and trust me, you do not want to miss a single second!",
		"calm":          "Take a slow, deep breath in, and let it go. Notice the weight of your body settling, and allow your thoughts to drift.",
		"warm":          "It's so good to see you again. Come in, sit down, and tell me everything that's happened since we last spoke.",
		"playful":       "Oh, you thought that was the end of the story? Not even close. Grab a snack, because things are about to get interesting.",
		"sarcastic":     "Oh, wonderful. Another meeting that could have been an email. I simply cannot contain my excitement.",
		"mysterious":    "Some doors are locked for a reason. Yet here you are, key in hand, wondering what waits on the other side.",
		"authoritative": "Listen carefully. These instructions will only be given once, and every one of you is expected to follow them exactly.",
		"dramatic":      "And in that moment, as the last light faded from the sky, she understood that nothing would ever be the same again.",
	}
	accentSamples = map[string]string{
		"British":    "Lovely to meet you. Shall we pop the kettle on and have a proper chat about the plans for the weekend?",
		"American":   "Hey there, thanks for stopping by. Let me walk you through everything you need to know to get started today.",
		"Australian": "G'day! Reckon we head down to the beach this arvo and grab some fish and chips on the way back?",
		"Irish":      "Ah, sure it's grand to see you. Come in out of that rain and we'll have the fire going in no time at all.",
		"Scottish":   "Aye, it's a bonny morning out there. We'll take the long road through the glen and be home before dark.",
	}
	ageSamples = map[voice.AgeGroup]string{
		voice.AgeYoung: "Okay, so you won't believe what happened today. I was on my way to class when I bumped into someone I haven't seen in years.",
		voice.AgeOlder: "When I was your age, the village had a single road and one little shop, and everybody knew everybody else by name.",
	}
	genderSamples = map[voice.Gender]string{
		voice.GenderFemale:  "Good morning! I've put together a quick summary of today's plans, so let's go through it one step at a time.",
		voice.GenderMale:    "Right, here's the plan. We start early, keep a steady pace, and we should reach the summit well before noon.",
		voice.GenderNeutral: "Welcome. Whatever brought you here today, take your time, look around, and ask anything that comes to mind.",
	}
	defaultSample = "Hello, and welcome. I'm delighted to be speaking with you today, and I hope you enjoy hearing what this voice can do."
)

// SampleText selects a preview utterance for attrs and pads it to the
// minimum length. Selection is deterministic.
func SampleText(attrs voice.AttributeSet) string {
	return padSample(selectSample(attrs))
}

func selectSample(attrs voice.AttributeSet) string {
	if s, ok := characterSamples[attrs.Character]; ok {
		return s
	}
	for _, tone := range attrs.Tones {
		if s, ok := toneSamples[tone]; ok {
			return s
		}
	}
	if s, ok := accentSamples[attrs.Accent]; ok {
		return s
	}
	if s, ok := ageSamples[attrs.AgeGroup]; ok {
		return s
	}
	if s, ok := genderSamples[attrs.Gender]; ok {
		return s
	}
	return defaultSample
}

func padSample(s string) string {
	if utf8.RuneCountInString(s) >= MinSampleLength {
		return s
	}
	var b strings.Builder
	b.WriteString(s)
	for utf8.RuneCountInString(b.String()) < MinSampleLength {
		b.WriteString(continuation)
	}
	return b.String()
}
