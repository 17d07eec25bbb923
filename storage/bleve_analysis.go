package storage

import (
	"bytes"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/registry"
)

// DomainSuffixTokenizerName is the registry name of the dot-suffix tokenizer.
const DomainSuffixTokenizerName = "domain_suffix"

// domainSuffixTokenizer emits every dot-separated suffix of its input,
// longest first: "a.b.com" yields "a.b.com", "b.com" and "com". It mirrors
// Elasticsearch's reversed path_hierarchy tokenizer with "." as delimiter.
type domainSuffixTokenizer struct{}

func (domainSuffixTokenizer) Tokenize(input []byte) analysis.TokenStream {
	if len(input) == 0 {
		return analysis.TokenStream{}
	}

	stream := make(analysis.TokenStream, 0, bytes.Count(input, []byte{'.'})+1)
	start := 0
	position := 1
	for start < len(input) {
		if input[start] != '.' {
			stream = append(stream, &analysis.Token{
				Term:     input[start:],
				Start:    start,
				End:      len(input),
				Position: position,
				Type:     analysis.AlphaNumeric,
			})
			position++
		}
		next := bytes.IndexByte(input[start:], '.')
		if next < 0 {
			break
		}
		start += next + 1
	}
	return stream
}

func domainSuffixTokenizerConstructor(config map[string]interface{}, cache *registry.Cache) (analysis.Tokenizer, error) {
	return domainSuffixTokenizer{}, nil
}

func init() {
	if err := registry.RegisterTokenizer(DomainSuffixTokenizerName, domainSuffixTokenizerConstructor); err != nil {
		panic(err)
	}
}
