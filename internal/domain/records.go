package domain

import "time"

// LiftEntry is one parsed entry record as handed over by a reader.
// GUID and ID are kept as raw strings; the resolver decides what they mean.
type LiftEntry struct {
	ID             string              `json:"id,omitempty" yaml:"id"`
	GUID           string              `json:"guid,omitempty" yaml:"guid"`
	Order          *int                `json:"order,omitempty" yaml:"order"`
	DateCreated    time.Time           `json:"dateCreated,omitempty" yaml:"dateCreated"`
	DateModified   time.Time           `json:"dateModified,omitempty" yaml:"dateModified"`
	LexicalUnit    MultiString         `json:"lexicalUnit,omitempty" yaml:"lexicalUnit"`
	CitationForm   MultiString         `json:"citation,omitempty" yaml:"citation"`
	MorphType      string              `json:"morphType,omitempty" yaml:"morphType"`
	Senses         []LiftSense         `json:"senses,omitempty" yaml:"senses"`
	Pronunciations []LiftPronunciation `json:"pronunciations,omitempty" yaml:"pronunciations"`
	Variants       []LiftVariant       `json:"variants,omitempty" yaml:"variants"`
	Allomorphs     []LiftVariant       `json:"allomorphs,omitempty" yaml:"allomorphs"`
	Relations      []LiftRelation      `json:"relations,omitempty" yaml:"relations"`
	Notes          []LiftNote          `json:"notes,omitempty" yaml:"notes"`
	Fields         []LiftField         `json:"fields,omitempty" yaml:"fields"`
	Traits         []LiftTrait         `json:"traits,omitempty" yaml:"traits"`
	Residue        string              `json:"residue,omitempty" yaml:"residue"`
}

type LiftSense struct {
	ID              string         `json:"id,omitempty" yaml:"id"`
	GUID            string         `json:"guid,omitempty" yaml:"guid"`
	GrammaticalInfo string         `json:"grammaticalInfo,omitempty" yaml:"grammaticalInfo"`
	Gloss           MultiString    `json:"gloss,omitempty" yaml:"gloss"`
	Definition      MultiString    `json:"definition,omitempty" yaml:"definition"`
	Examples        []LiftExample  `json:"examples,omitempty" yaml:"examples"`
	SemanticDomains []string       `json:"semanticDomains,omitempty" yaml:"semanticDomains"`
	DoNotPublishIn  []string       `json:"doNotPublishIn,omitempty" yaml:"doNotPublishIn"`
	Relations       []LiftRelation `json:"relations,omitempty" yaml:"relations"`
	Notes           []LiftNote     `json:"notes,omitempty" yaml:"notes"`
	Fields          []LiftField    `json:"fields,omitempty" yaml:"fields"`
	Traits          []LiftTrait    `json:"traits,omitempty" yaml:"traits"`
}

type LiftExample struct {
	GUID         string            `json:"guid,omitempty" yaml:"guid"`
	Source       string            `json:"source,omitempty" yaml:"source"`
	Forms        MultiString       `json:"forms,omitempty" yaml:"forms"`
	Translations []LiftTranslation `json:"translations,omitempty" yaml:"translations"`
	Fields       []LiftField       `json:"fields,omitempty" yaml:"fields"`
	Traits       []LiftTrait       `json:"traits,omitempty" yaml:"traits"`
}

type LiftTranslation struct {
	Type  string      `json:"type,omitempty" yaml:"type"`
	Forms MultiString `json:"forms,omitempty" yaml:"forms"`
}

type LiftPronunciation struct {
	GUID   string      `json:"guid,omitempty" yaml:"guid"`
	Forms  MultiString `json:"forms,omitempty" yaml:"forms"`
	Fields []LiftField `json:"fields,omitempty" yaml:"fields"`
	Traits []LiftTrait `json:"traits,omitempty" yaml:"traits"`
}

// LiftVariant is either a variant reference (Ref set or a variant-type trait)
// or an allomorph (forms only).
type LiftVariant struct {
	GUID         string      `json:"guid,omitempty" yaml:"guid"`
	Ref          string      `json:"ref,omitempty" yaml:"ref"`
	Forms        MultiString `json:"forms,omitempty" yaml:"forms"`
	Environments []string    `json:"environments,omitempty" yaml:"environments"`
	Fields       []LiftField `json:"fields,omitempty" yaml:"fields"`
	Traits       []LiftTrait `json:"traits,omitempty" yaml:"traits"`
}

type LiftRelation struct {
	Type   string      `json:"type" yaml:"type"`
	Ref    string      `json:"ref,omitempty" yaml:"ref"`
	Order  *int        `json:"order,omitempty" yaml:"order"`
	Traits []LiftTrait `json:"traits,omitempty" yaml:"traits"`
}

type LiftNote struct {
	Type  string      `json:"type,omitempty" yaml:"type"`
	Forms MultiString `json:"forms,omitempty" yaml:"forms"`
}

type LiftField struct {
	Type  string      `json:"type" yaml:"type"`
	Forms MultiString `json:"forms,omitempty" yaml:"forms"`
}

type LiftTrait struct {
	Name  string `json:"name" yaml:"name"`
	Value string `json:"value" yaml:"value"`
}

// TraitValues returns every value of the named trait, in document order.
func TraitValues(traits []LiftTrait, name string) []string {
	var out []string
	for _, t := range traits {
		if t.Name == name {
			out = append(out, t.Value)
		}
	}
	return out
}

// LiftRange is one range block of a ranges file. The same ID may appear more than once.
type LiftRange struct {
	ID       string             `json:"id" yaml:"id"`
	GUID     string             `json:"guid,omitempty" yaml:"guid"`
	Label    MultiString        `json:"label,omitempty" yaml:"label"`
	Elements []LiftRangeElement `json:"elements,omitempty" yaml:"elements"`
}

type LiftRangeElement struct {
	ID                  string      `json:"id" yaml:"id"`
	GUID                string      `json:"guid,omitempty" yaml:"guid"`
	Parent              string      `json:"parent,omitempty" yaml:"parent"`
	Label               MultiString `json:"label,omitempty" yaml:"label"`
	Abbrev              MultiString `json:"abbrev,omitempty" yaml:"abbrev"`
	Description         MultiString `json:"description,omitempty" yaml:"description"`
	ReverseLabel        MultiString `json:"reverseLabel,omitempty" yaml:"reverseLabel"`
	ReverseAbbreviation MultiString `json:"reverseAbbrev,omitempty" yaml:"reverseAbbrev"`
	Traits              []LiftTrait `json:"traits,omitempty" yaml:"traits"`
}

// FieldHeader is a custom field declaration from the document header.
// Spec looks like "Class=LexEntry; Type=Integer; WsSelector=kwsAnal".
type FieldHeader struct {
	Tag         string      `json:"tag" yaml:"tag"`
	Spec        string      `json:"spec,omitempty" yaml:"spec"`
	Description MultiString `json:"description,omitempty" yaml:"description"`
}
