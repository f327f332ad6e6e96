package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"bitbucket.org/mmdatafocus/tradebooks_backend/middlewares"
	"bitbucket.org/mmdatafocus/tradebooks_backend/models"
	"bitbucket.org/mmdatafocus/tradebooks_backend/utils"
)

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=6"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if !bindJSON(c, &req) {
			return
		}
		info, err := models.Login(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			renderError(c, "loginHandler", err)
			return
		}
		ok(c, info)
	}
}

func meHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userId, _ := utils.GetUserIdFromContext(c.Request.Context())
		user, err := models.GetUser(c.Request.Context(), userId)
		if err != nil {
			renderError(c, "meHandler", err)
			return
		}
		ok(c, user)
	}
}

func logoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := middlewares.CtxValue(c.Request.Context())
		if claims == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		if err := models.Logout(c.Request.Context(), time.Unix(claims.ExpiresAt, 0)); err != nil {
			renderError(c, "logoutHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func changePasswordHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req changePasswordRequest
		if !bindJSON(c, &req) {
			return
		}
		if err := models.ChangePassword(c.Request.Context(), req.OldPassword, req.NewPassword); err != nil {
			renderError(c, "changePasswordHandler", err)
			return
		}
		c.Status(http.StatusNoContent)
	}
}

func listUsersHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		users, err := models.ListUsers(c.Request.Context())
		if err != nil {
			renderError(c, "listUsersHandler", err)
			return
		}
		ok(c, users)
	}
}

func createUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		user, err := models.CreateUser(c.Request.Context(), &input)
		if err != nil {
			renderError(c, "createUserHandler", err)
			return
		}
		created(c, user)
	}
}

func updateUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := paramId(c)
		if !valid {
			return
		}
		var input models.NewUser
		if !bindJSON(c, &input) {
			return
		}
		user, err := models.UpdateUser(c.Request.Context(), id, &input)
		if err != nil {
			renderError(c, "updateUserHandler", err)
			return
		}
		ok(c, user)
	}
}
