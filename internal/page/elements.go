package page

import (
	"strconv"
	"strings"
)

// Strategy selects which Finder method resolves an element.
type Strategy int

const (
	ByID Strategy = iota
	ByClass
)

// Element names a logical element of a quiz page.
type Element int

const (
	ButtonPlay Element = iota
	ButtonPrev
	ButtonNext
	ButtonPause
	ButtonResume
	ButtonGiveUp
	ButtonEmbedded

	GuessInput

	ScoreText
	TimeText
	ForcedOrderText
	WrongAnswerText
	GameOverText

	Slot
	SlotName
	SlotExtra
)

// Descriptor tells how to find an element. Templates containing "%d" are
// indexed: the placeholder is replaced by the element's index.
type Descriptor struct {
	Strategy Strategy
	Template string
}

// The quiz site is not ours; when its markup changes this table is the place to update.
var descriptors = map[Element]Descriptor{
	ButtonPlay:     {ByID, "button-play"},
	ButtonPrev:     {ByID, "previousButton"},
	ButtonNext:     {ByID, "nextButton"},
	ButtonPause:    {ByID, "pauseBox"},
	ButtonResume:   {ByID, "resumeBtn"},
	ButtonGiveUp:   {ByID, "giveUp"},
	ButtonEmbedded: {ByID, "embedMedia"},

	GuessInput: {ByID, "gameinput"},

	ScoreText:       {ByClass, "currentScore"},
	TimeText:        {ByID, "time"},
	ForcedOrderText: {ByID, "forcedOrder"},
	WrongAnswerText: {ByID, "wrongAnswer"},
	GameOverText:    {ByID, "postGameBox"},

	Slot:      {ByID, "slot%d"},
	SlotName:  {ByID, "name%d"},
	SlotExtra: {ByID, "extra%d"},
}

var elementNames = map[Element]string{
	ButtonPlay:      "play button",
	ButtonPrev:      "previous button",
	ButtonNext:      "next button",
	ButtonPause:     "pause button",
	ButtonResume:    "resume button",
	ButtonGiveUp:    "give up button",
	ButtonEmbedded:  "embedded media",
	GuessInput:      "guess input",
	ScoreText:       "score",
	TimeText:        "timer",
	ForcedOrderText: "forced order marker",
	WrongAnswerText: "wrong answer marker",
	GameOverText:    "game over box",
	Slot:            "slot",
	SlotName:        "slot name",
	SlotExtra:       "slot extra",
}

func (e Element) String() string {
	if name, ok := elementNames[e]; ok {
		return name
	}
	return "element(" + strconv.Itoa(int(e)) + ")"
}

// Lookup resolves the element to a strategy and a concrete selector.
func (e Element) Lookup(index int) (Descriptor, bool) {
	d, ok := descriptors[e]
	if !ok {
		return Descriptor{}, false
	}
	if strings.Contains(d.Template, "%d") {
		d.Template = strings.Replace(d.Template, "%d", strconv.Itoa(index), 1)
	}
	return d, true
}
