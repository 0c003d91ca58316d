package handler

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"rdr-dashboard/controller"
	"rdr-dashboard/viewstate"
)

// Query keys of an action request. No view state uses them.
const (
	opParam    = "op"
	keyParam   = "key"
	valueParam = "value"

	scaleSuffix = "_scale"
)

var errUnknownOp = errors.New("unknown action")

func hasKey[S any](key string) bool {
	for _, k := range viewstate.Keys[S]() {
		if k == key {
			return true
		}
	}
	return false
}

// parseAction turns the op, key and value parameters of a request into a
// view state mutation for screen S.
func parseAction[S any](q url.Values) (func(*S), error) {
	op, key, value := q.Get(opParam), q.Get(keyParam), q.Get(valueParam)

	needKey := func(k string) error {
		if !hasKey[S](k) {
			return fmt.Errorf("%s: no field %q on this screen", op, k)
		}
		return nil
	}
	number := func() (int, error) {
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return 0, fmt.Errorf("%s: %q is not a non-negative integer", op, value)
		}
		return n, nil
	}

	switch op {
	case "sort":
		if err := needKey(controller.KeySortKey); err != nil {
			return nil, err
		}
		if key == "" {
			return nil, errors.New("sort: missing column")
		}
		return controller.ToggleSort[S](key), nil
	case "filter":
		if !viewstate.IsServer[S](key) {
			return nil, fmt.Errorf("filter: %q is not a filter of this screen", key)
		}
		return controller.SetFilter[S](key, value), nil
	case "draft", "commit", "clear":
		if err := needKey(key); err != nil {
			return nil, err
		}
		if err := needKey(controller.DraftKey(key)); err != nil {
			return nil, err
		}
		switch op {
		case "draft":
			return controller.SetDraft[S](key, value), nil
		case "commit":
			return controller.CommitDraft[S](key), nil
		default:
			return controller.ClearDraft[S](key), nil
		}
	case "limit":
		if err := needKey(controller.KeyLimit); err != nil {
			return nil, err
		}
		n, err := number()
		if err != nil {
			return nil, err
		}
		return controller.SetLimit[S](n), nil
	case "offset":
		if !viewstate.Paginated[S]() {
			return nil, errors.New("offset: this screen is not paginated")
		}
		n, err := number()
		if err != nil {
			return nil, err
		}
		return controller.SetOffset[S](n), nil
	case "timezone":
		return controller.SelectTimezone[S](value), needKey(controller.KeyTimezone)
	case "temp_timezone":
		return controller.SetTempTimezone[S](value), needKey(controller.KeyTempTimezone)
	case "commit_timezone":
		return controller.CommitTempTimezone[S](), needKey(controller.KeyTempTimezone)
	case "clear_timezone":
		return controller.ClearTempTimezone[S](), needKey(controller.KeyTempTimezone)
	case "relative":
		return controller.ToggleRelativeTime[S](), needKey(controller.KeyRelativeTime)
	case "scale":
		if !strings.HasSuffix(key, scaleSuffix) {
			return nil, fmt.Errorf("scale: %q is not a chart axis", key)
		}
		return controller.ToggleScale[S](key), needKey(key)
	case "line":
		return controller.ToggleLine[S](key), needKey(controller.KeyHiddenLines)
	case "log_filter":
		return controller.SetLogFilter[S](value), needKey(controller.KeyLogFilter)
	}
	return nil, fmt.Errorf("%w %q", errUnknownOp, op)
}
