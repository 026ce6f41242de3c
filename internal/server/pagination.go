package server

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/MarcoPoloResearchLab/choir/backend/internal/repertoire"
	"github.com/gin-gonic/gin"
)

// parsePageRequest reads page, size and repeated sort=property[,asc|desc] parameters.
func parsePageRequest(c *gin.Context, sortable map[string]string) (repertoire.PageRequest, []fieldError) {
	var fields []fieldError
	request := repertoire.PageRequest{Page: 0, Size: repertoire.DefaultPageSize}

	if raw, ok := c.GetQuery("page"); ok {
		page, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || page < 0 {
			fields = append(fields, fieldError{Field: "page", Message: "Page must be a non-negative integer"})
		} else {
			request.Page = page
		}
	}

	if raw, ok := c.GetQuery("size"); ok {
		size, err := strconv.Atoi(strings.TrimSpace(raw))
		if err != nil || size < 1 || size > repertoire.MaxPageSize {
			fields = append(fields, fieldError{
				Field:   "size",
				Message: fmt.Sprintf("Size must be an integer between 1 and %d", repertoire.MaxPageSize),
			})
		} else {
			request.Size = size
		}
	}

	if request.Page > math.MaxInt/request.Size {
		fields = append(fields, fieldError{Field: "page", Message: "Page is out of range for the requested size"})
	}

	for _, raw := range c.QueryArray("sort") {
		order, message := parseSortOrder(raw, sortable)
		if message != "" {
			fields = append(fields, fieldError{Field: "sort", Message: message})
			continue
		}
		request.Sort = append(request.Sort, order)
	}

	return request, fields
}

// parseSortOrder returns a non-empty message when raw names an unknown property or direction.
func parseSortOrder(raw string, sortable map[string]string) (repertoire.SortOrder, string) {
	property, direction, _ := strings.Cut(raw, ",")
	property = strings.TrimSpace(property)
	if _, ok := sortable[property]; !ok {
		return repertoire.SortOrder{}, "Unsupported sort property: " + property
	}
	switch strings.ToLower(strings.TrimSpace(direction)) {
	case "", "asc":
		return repertoire.SortOrder{Property: property}, ""
	case "desc":
		return repertoire.SortOrder{Property: property, Descending: true}, ""
	default:
		return repertoire.SortOrder{}, "Unsupported sort direction: " + direction
	}
}

func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		respondValidation(c, []fieldError{{Field: "id", Message: "Identifier must be a positive integer"}})
		return 0, false
	}
	return id, true
}
