package batch

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Result represents the result of a single operation in a batch
type Result struct {
	ID     int64  `json:"id"`
	Status string `json:"status"` // "success" or "error"
	Result string `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseID converts a JSON number or a numeric string into a record id.
func ParseID(v any, paramName string) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, fmt.Errorf("%s is required", paramName)
	case float64:
		if n != math.Trunc(n) || n > math.MaxInt64 || n < math.MinInt64 {
			return 0, fmt.Errorf("%s must be an integer", paramName)
		}
		return int64(n), nil
	case int:
		return int64(n), nil
	case int64:
		return n, nil
	case json.Number:
		id, err := n.Int64()
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", paramName)
		}
		return id, nil
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, fmt.Errorf("%s cannot be empty", paramName)
		}
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", paramName)
		}
		return id, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", paramName)
	}
}

// ParseIDs parses a parameter that can be either a single id or an array of ids
func ParseIDs(param any, paramName string) ([]int64, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	items, ok := param.([]any)
	if !ok {
		id, err := ParseID(param, paramName)
		if err != nil {
			return nil, err
		}
		return []int64{id}, nil
	}

	if len(items) == 0 {
		return nil, fmt.Errorf("%s cannot be empty", paramName)
	}
	ids := make([]int64, 0, len(items))
	for i, item := range items {
		id, err := ParseID(item, fmt.Sprintf("%s[%d]", paramName, i))
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// FormatResults creates a formatted JSON string from batch results
func FormatResults(results []Result) string {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}

	for _, r := range results {
		if r.Status == "success" {
			br.Successful++
		} else {
			br.Failed++
		}
	}

	jsonBytes, _ := json.MarshalIndent(br, "", "  ")
	return string(jsonBytes)
}

// ProcessBatch executes fn on each id and collects results. A failing id
// does not stop the batch.
func ProcessBatch(ids []int64, fn func(id int64) (string, error)) []Result {
	results := make([]Result, 0, len(ids))
	for _, id := range ids {
		res, err := fn(id)
		if err != nil {
			results = append(results, NewErrorResult(id, err))
			continue
		}
		results = append(results, NewSuccessResult(id, res))
	}
	return results
}

// NewSuccessResult creates a success result
func NewSuccessResult(id int64, message string) Result {
	return Result{
		ID:     id,
		Status: "success",
		Result: message,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id int64, err error) Result {
	return Result{
		ID:     id,
		Status: "error",
		Error:  err.Error(),
	}
}
