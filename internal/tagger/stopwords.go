package tagger

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {},
	"from": {}, "would": {}, "could": {}, "should": {}, "there": {}, "their": {},
	"about": {}, "into": {}, "through": {}, "while": {}, "where": {}, "which": {},
	"your": {}, "have": {}, "been": {}, "were": {}, "will": {}, "shall": {},
}

func isStopword(tok string) bool {
	_, ok := stopwords[tok]
	return ok
}
