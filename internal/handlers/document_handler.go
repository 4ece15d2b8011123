package handlers

import (
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/healthcareclinic/clinic-api/internal/middleware"
	"github.com/healthcareclinic/clinic-api/internal/models"
	"github.com/healthcareclinic/clinic-api/internal/storage"
)

var documentKinds = map[string]string{
	"image/jpeg":      models.FileKindImage,
	"image/jpg":       models.FileKindImage,
	"image/png":       models.FileKindImage,
	"application/pdf": models.FileKindPDF,
}

// UploadDocument stores a prescription or report for one of the doctor's
// patients.
func (h *Handler) UploadDocument(c *gin.Context) {
	user := middleware.CurrentUser(c)
	if user == nil || user.Role != models.RoleDoctor {
		c.JSON(http.StatusForbidden, gin.H{"message": "Only doctors can upload documents."})
		return
	}

	name := c.PostForm("name")
	patientHex := c.PostForm("patientId")
	fileHeader, err := c.FormFile("file")
	if name == "" || patientHex == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Document name, patient ID, and file are required."})
		return
	}
	patientID, err := primitive.ObjectIDFromHex(patientHex)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid patient ID."})
		return
	}

	data, contentType, ok := h.readUpload(c, fileHeader, documentKinds,
		"File size must be less than 1MB.",
		"Only JPG, JPEG, PNG or PDF files are allowed.")
	if !ok {
		return
	}

	// Random object name keeps uploads from colliding in the bucket.
	objectName := uuid.NewString() + filepath.Ext(fileHeader.Filename)
	url, err := h.Uploader.Upload(c.Request.Context(), storage.FolderPrescriptions, objectName, contentType, data)
	if err != nil {
		h.Log.WithError(err).Error("document upload failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error while uploading document."})
		return
	}

	doc := &models.Document{
		Name:     name,
		URL:      url,
		Patient:  patientID,
		Doctor:   user.ID,
		FileKind: documentKinds[contentType],
	}
	if err := h.Documents.Insert(c.Request.Context(), doc); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, doc)
}

// GetPatientDocuments lists documents shared with the authenticated
// patient.
func (h *Handler) GetPatientDocuments(c *gin.Context) {
	user := middleware.CurrentUser(c)
	docs, err := h.Documents.ListByPatient(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// GetDoctorDocuments lists the authenticated doctor's uploads.
func (h *Handler) GetDoctorDocuments(c *gin.Context) {
	user := middleware.CurrentUser(c)
	docs, err := h.Documents.ListByDoctor(c.Request.Context(), user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// DeleteDocument removes a document; only the uploading doctor may.
func (h *Handler) DeleteDocument(c *gin.Context) {
	user := middleware.CurrentUser(c)
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid document ID."})
		return
	}

	ctx := c.Request.Context()
	doc, err := h.Documents.FindByID(ctx, id)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if doc.Doctor != user.ID {
		c.JSON(http.StatusForbidden, gin.H{"message": "Unauthorized to delete this document."})
		return
	}

	if err := h.Documents.Delete(ctx, id); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Document deleted successfully."})
}

// GetPatientsForDoctor lists the patients the doctor has appointments
// with, for the upload form's patient picker.
func (h *Handler) GetPatientsForDoctor(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	ids, err := h.Repo.DistinctPatients(ctx, user.ID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	type patientRef struct {
		ID   primitive.ObjectID `json:"id"`
		Name string             `json:"name"`
	}
	patients := make([]patientRef, 0, len(ids))
	for _, id := range ids {
		patient, err := h.Users.FindByID(ctx, id)
		if err != nil {
			// Patient account was removed; skip the dangling reference.
			continue
		}
		patients = append(patients, patientRef{ID: patient.ID, Name: patient.Name})
	}
	c.JSON(http.StatusOK, patients)
}

// readUpload enforces the shared size and content-type limits and returns
// the file bytes.
func (h *Handler) readUpload(c *gin.Context, fh *multipart.FileHeader, allowed map[string]string, sizeMsg, typeMsg string) ([]byte, string, bool) {
	if fh.Size > storage.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"message": sizeMsg})
		return nil, "", false
	}
	contentType := fh.Header.Get("Content-Type")
	if _, ok := allowed[contentType]; !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": typeMsg})
		return nil, "", false
	}

	file, err := fh.Open()
	if err != nil {
		h.respondError(c, err)
		return nil, "", false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, storage.MaxUploadBytes+1))
	if err != nil {
		h.respondError(c, err)
		return nil, "", false
	}
	if len(data) > storage.MaxUploadBytes {
		c.JSON(http.StatusBadRequest, gin.H{"message": sizeMsg})
		return nil, "", false
	}
	return data, contentType, true
}
