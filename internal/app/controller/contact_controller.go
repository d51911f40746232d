package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/atelier-backend/internal/app/service"
	apperrors "github.com/ikkim/atelier-backend/internal/errors"
	"github.com/ikkim/atelier-backend/internal/middleware"
)

type ContactController struct {
	contactService service.ContactService
}

func NewContactController(contactService service.ContactService) *ContactController {
	return &ContactController{contactService: contactService}
}

type ContactRequest struct {
	Name    string `json:"name" binding:"required"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// Submit stores a message from the contact form
// POST /api/v1/contact
func (ctrl *ContactController) Submit(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn("Invalid contact request", map[string]interface{}{
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Please fill in your name, a valid email, a subject and a message")
		return
	}

	msg, err := ctrl.contactService.Submit(c.Request.Context(), req.Name, req.Email, req.Subject, req.Message)
	if err != nil {
		if errors.Is(err, service.ErrInvalidContactMessage) {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Your message could not be accepted")
			return
		}
		log.Error("Failed to store contact message", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "submit contact message")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Thanks for reaching out, we will get back to you soon",
		"id":      msg.ID,
	})
}

// List returns contact messages, newest first (Admin only)
// GET /api/v1/contact?unhandled=true
func (ctrl *ContactController) List(c *gin.Context) {
	onlyUnhandled, _ := strconv.ParseBool(c.Query("unhandled"))

	messages, err := ctrl.contactService.List(c.Request.Context(), onlyUnhandled)
	if err != nil {
		middleware.GetLoggerFromContext(c).Error("Failed to list contact messages", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "list contact messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"messages": messages,
		"count":    len(messages),
	})
}

// MarkHandled flags a message as answered (Admin only)
// PATCH /api/v1/contact/:id/handled
func (ctrl *ContactController) MarkHandled(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid message id")
		return
	}

	if err := ctrl.contactService.MarkHandled(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, service.ErrContactNotFound) {
			apperrors.NotFound(c, apperrors.ContactNotFound, "Message not found")
			return
		}
		middleware.GetLoggerFromContext(c).Error("Failed to mark contact message handled", err, map[string]interface{}{
			"contact_id": id,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "update contact message")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Marked as handled",
	})
}
