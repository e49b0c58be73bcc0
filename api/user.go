package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// newUserID is fixed, users are not stored.
const newUserID = 1337

func (a *API) postUser(c *gin.Context) {
	// pointers tell a missing field apart from an empty one
	type request struct {
		Username *string `json:"username" validate:"required"`
		UType    *string `json:"utype" validate:"required"`
	}
	type response struct {
		ID       int    `json:"id"`
		Username string `json:"username"`
		UType    string `json:"utype"`
	}

	if !isJSON(c.ContentType()) {
		c.AbortWithStatus(http.StatusUnsupportedMediaType)
		return
	}

	var req request
	err := c.ShouldBindJSON(&req)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	err = validate.Struct(req)
	if err != nil {
		_ = c.Error(err)
		c.AbortWithStatus(http.StatusBadRequest)
		return
	}

	c.JSON(http.StatusCreated, response{
		ID:       newUserID,
		Username: *req.Username,
		UType:    *req.UType,
	})
}

// isJSON accepts application/json and the application/*+json types.
func isJSON(mime string) bool {
	if mime == binding.MIMEJSON {
		return true
	}
	return strings.HasPrefix(mime, "application/") && strings.HasSuffix(mime, "+json")
}
