package server

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// ParseFilter compiles a jq expression. An empty expression yields nil.
func ParseFilter(expression string) (*gojq.Query, error) {
	if expression == "" {
		return nil, nil
	}
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, fmt.Errorf("could not parse filter: %w", err)
	}
	return query, nil
}

// ApplyFilter runs query over the JSON form of v. Results that are errors
// are skipped. A single result is returned as is, several as a list.
func ApplyFilter(query *gojq.Query, v interface{}) (interface{}, error) {
	if query == nil {
		return v, nil
	}

	// gojq only accepts plain maps, slices and scalars
	marshalled, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var input interface{}
	if err := json.Unmarshal(marshalled, &input); err != nil {
		return nil, err
	}

	var results []interface{}
	iter := query.Run(input)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}

		if _, ok := v.(error); ok {
			continue
		}

		results = append(results, v)
	}

	switch len(results) {
	case 0:
		return nil, nil
	case 1:
		return results[0], nil
	default:
		return results, nil
	}
}
