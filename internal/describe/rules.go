package describe

import (
	"regexp"

	"github.com/MrWong99/vocalis/pkg/voice"
)

// rule maps a pattern to the value it yields for its category.
type rule[T any] struct {
	pattern *regexp.Regexp
	value   T
}

// Outcome is the tagged result of evaluating one category: either a matched
// value or unspecified.
type Outcome[T any] struct {
	value   T
	matched bool
}

// firstMatch evaluates rules in order and returns the first match.
func firstMatch[T any](rules []rule[T], text string) Outcome[T] {
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			return Outcome[T]{value: r.value, matched: true}
		}
	}
	return Outcome[T]{}
}

// allMatches returns the value of every matching rule, in table order.
func allMatches(rules []rule[string], text string) []string {
	var out []string
	for _, r := range rules {
		if r.pattern.MatchString(text) {
			out = append(out, r.value)
		}
	}
	return out
}

// words builds a case-insensitive whole-word alternation.
func words(alternation string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)\b(?:` + alternation + `)\b`)
}

// Gender rules. Neutral is checked first so "gender-neutral" never falls
// through to the other two; female precedes male.
var genderRules = []rule[voice.Gender]{
	{words(`gender[- ]?neutral|androgynous|non[- ]?binary|ambiguous gender|unisex`), voice.GenderNeutral},
	{words(`female|woman|women|girl|lady|ladies|feminine|she|her|mother|grandmother|queen|actress|heroine`), voice.GenderFemale},
	{words(`male|man|men|guy|boy|gentleman|masculine|he|his|father|grandfather|king|actor|dude`), voice.GenderMale},
}

// Accent rules, in priority order.
var accentRules = []rule[string]{
	{words(`british|english accent|uk|london|londoner|received pronunciation|rp|cockney|posh english`), "British"},
	{words(`scottish|scots|glaswegian|edinburgh`), "Scottish"},
	{words(`irish|dublin`), "Irish"},
	{words(`welsh`), "Welsh"},
	{words(`southern american|southern drawl|texan|texas|southern`), "Southern American"},
	{words(`american|us accent|usa|new york|new yorker|californian|midwestern`), "American"},
	{words(`canadian`), "Canadian"},
	{words(`australian|aussie`), "Australian"},
	{words(`new zealand|kiwi`), "New Zealand"},
	{words(`south african`), "South African"},
	{words(`indian`), "Indian"},
	{words(`french|parisian`), "French"},
	{words(`german`), "German"},
	{words(`spanish|castilian`), "Spanish"},
	{words(`mexican|latin american|latino|latina`), "Latin American"},
	{words(`italian`), "Italian"},
	{words(`russian`), "Russian"},
	{words(`swedish|scandinavian|norwegian|danish`), "Scandinavian"},
	{words(`japanese`), "Japanese"},
	{words(`chinese|mandarin`), "Chinese"},
	{words(`nigerian|west african`), "Nigerian"},
}

// Age rules. Middle-aged first so "middle-aged" is not read as "aged".
var ageRules = []rule[voice.AgeGroup]{
	{words(`middle[- ]aged|middle age|mature|thirties|forties|30s|40s|midlife`), voice.AgeMiddleAged},
	{words(`young|youthful|younger|twenties|20s|college|student|youth`), voice.AgeYoung},
	{words(`old|older|elderly|senior|aged|ancient|grandfather|grandmother|sixties|seventies|60s|70s|veteran`), voice.AgeOlder},
}

// Tone and energy labels. Each label is its own rule; all matching labels
// are collected.
var toneRules = []rule[string]{
	{words(`professional|polished|businesslike`), "professional"},
	{words(`warm|warmth`), "warm"},
	{words(`friendly|approachable|welcoming`), "friendly"},
	{words(`calm|soothing|relaxed|serene|tranquil`), "calm"},
	{words(`energetic|excited|enthusiastic|upbeat|lively|bubbly|hyper`), "energetic"},
	{words(`authoritative|commanding|assertive|confident`), "authoritative"},
	{words(`clear|crisp|articulate`), "clear"},
	{words(`soft|gentle|whispery|whispering|hushed`), "soft"},
	{words(`deep|low[- ]pitched|booming|bass`), "deep"},
	{words(`raspy|gravelly|husky|hoarse|rough`), "raspy"},
	{words(`playful|cheeky|mischievous|whimsical|quirky`), "playful"},
	{words(`serious|stern|grave|somber|sombre`), "serious"},
	{words(`cheerful|happy|joyful|sunny`), "cheerful"},
	{words(`sarcastic|sardonic|snarky|dry|deadpan`), "sarcastic"},
	{words(`dramatic|theatrical|intense|epic`), "dramatic"},
	{words(`mysterious|enigmatic|eerie|ominous|sinister|creepy`), "mysterious"},
	{words(`casual|conversational|laid[- ]back|chill`), "casual"},
}

// Character archetypes, in priority order.
var characterRules = []rule[string]{
	{words(`news anchor|newscaster|anchorman|anchorwoman|reporter`), "news anchor"},
	{words(`narrator|narration|storyteller|audiobook reader`), "narrator"},
	{words(`villain|evil|antagonist|bad guy`), "villain"},
	{words(`hero|heroic|heroine|champion`), "hero"},
	{words(`pirate|buccaneer`), "pirate"},
	{words(`wizard|sorcerer|mage|witch|warlock`), "wizard"},
	{words(`robot|android|cyborg|ai assistant|synthetic`), "robot"},
	{words(`detective|investigator|noir`), "detective"},
	{words(`knight|warrior|soldier`), "knight"},
	{words(`teacher|professor|tutor|lecturer|instructor`), "teacher"},
	{words(`mentor|sage|guru`), "mentor"},
	{words(`customer service|support agent|receptionist|concierge|assistant`), "assistant"},
	{words(`announcer|host|presenter|emcee|mc`), "host"},
	{words(`coach|trainer`), "coach"},
}

// Generic use-case tags.
var tagRules = []rule[string]{
	{words(`audiobooks?|audio books?|novel|story|stories|storytelling`), "audiobook"},
	{words(`podcasts?`), "podcast"},
	{words(`games?|gaming|video games?|npc`), "gaming"},
	{words(`meditation|mindfulness|asmr|sleep|relaxation`), "meditation"},
	{words(`ads?|advertisements?|commercials?|promo|marketing`), "advertisement"},
	{words(`news|broadcast|bulletin`), "news"},
	{words(`education|educational|tutorial|e-?learning|course|lessons?`), "education"},
	{words(`customer support|customer service|call center|call centre|ivr|support`), "customer-support"},
	{words(`social media|tiktok|youtube|shorts|reels`), "social-media"},
	{words(`animation|cartoon|animated`), "animation"},
	{words(`trailer|movie|film|cinematic`), "cinematic"},
	{words(`conversation|conversational|chat|chatbot|persona`), "conversational"},
}
