package converter

import (
	"net/url"
	"strconv"
	"strings"

	"notes-client/internal/model"
	"notes-client/internal/remoteerr"
)

// Параметры строки запроса GET /v1/notes
const (
	ParamPage      = "page"
	ParamPageSize  = "page_size"
	ParamSearch    = "search"
	ParamCategory  = "category"
	ParamTags      = "tags"
	ParamPriority  = "priority"
	ParamCompleted = "completed"
	ParamSortBy    = "sort_by"
	ParamSortDir   = "sort_dir"
)

// QueryToValues кодирует запрос страницы в параметры URL. Пустые ограничения не передаются.
func QueryToValues(q model.PageQuery) url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set(ParamPage, strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set(ParamPageSize, strconv.Itoa(q.PageSize))
	}

	f := q.Filter
	if f.SearchText != "" {
		v.Set(ParamSearch, f.SearchText)
	}
	if f.Category != nil {
		v.Set(ParamCategory, *f.Category)
	}
	if len(f.Tags) > 0 {
		v.Set(ParamTags, strings.Join(f.Tags, ","))
	}
	if f.Priority != nil {
		v.Set(ParamPriority, string(*f.Priority))
	}
	if f.Completed != nil {
		v.Set(ParamCompleted, strconv.FormatBool(*f.Completed))
	}

	s := q.Sort.Normalize()
	v.Set(ParamSortBy, string(s.Field))
	v.Set(ParamSortDir, string(s.Direction))
	return v
}

// ValuesToQuery разбирает параметры URL в запрос страницы
func ValuesToQuery(v url.Values) (model.PageQuery, error) {
	var q model.PageQuery
	fields := map[string]string{}

	q.Page = 1
	if s := v.Get(ParamPage); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			fields[ParamPage] = "page must be a positive integer"
		} else {
			q.Page = n
		}
	}
	if s := v.Get(ParamPageSize); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			fields[ParamPageSize] = "page_size must be a positive integer"
		} else {
			q.PageSize = n
		}
	}

	q.Filter.SearchText = v.Get(ParamSearch)
	if v.Has(ParamCategory) {
		c := v.Get(ParamCategory)
		q.Filter.Category = &c
	}
	if s := v.Get(ParamTags); s != "" {
		q.Filter.Tags = model.NormalizeTags(strings.Split(s, ","))
	}
	if s := v.Get(ParamPriority); s != "" {
		p := model.Priority(strings.ToLower(s))
		if !p.IsValid() {
			fields[ParamPriority] = "unknown priority"
		} else {
			q.Filter.Priority = &p
		}
	}
	if s := v.Get(ParamCompleted); s != "" {
		b, err := strconv.ParseBool(s)
		if err != nil {
			fields[ParamCompleted] = "completed must be true or false"
		} else {
			q.Filter.Completed = &b
		}
	}

	q.Sort = model.NoteSort{
		Field:     model.SortField(v.Get(ParamSortBy)),
		Direction: model.SortDirection(v.Get(ParamSortDir)),
	}.Normalize()

	if len(fields) > 0 {
		return model.PageQuery{}, remoteerr.Validation("invalid query parameters").WithFields(fields)
	}
	return q, nil
}
