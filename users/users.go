package users

import (
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"wayfare/apperror"
	"wayfare/factory"
	"wayfare/middleware"
	"wayfare/models"
	"wayfare/store"
	"wayfare/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	opTimeout      = 5 * time.Second
	maxPhotoBytes  = 5 << 20
	photoEdge      = 500
	photoJPEGQual  = 90
)

type Handlers struct {
	Users     *store.Mongo[models.User]
	UploadDir string
	Dev       bool
}

// Me returns the signed-in user's own document.
func (h *Handlers) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apperror.Respond(w, apperror.Unauthorized("You are not logged in! Please log in to get access."), h.Dev)
		return
	}
	user, err := h.Users.FindByID(ctx, principal.ID)
	if err != nil {
		apperror.Respond(w, apperror.FromMongo(err, "user"), h.Dev)
		return
	}
	utils.Success(w, http.StatusOK, utils.M{"user": user})
}

// UpdateMe changes the caller's name, email or photo. Password fields are
// rejected outright; that traffic belongs to the password routes.
func (h *Handlers) UpdateMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apperror.Respond(w, apperror.Unauthorized("You are not logged in! Please log in to get access."), h.Dev)
		return
	}

	patch := bson.M{}
	var photo *multipart.FileHeader

	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxPhotoBytes); err != nil {
			apperror.Respond(w, apperror.BadRequest("Invalid multipart form"), h.Dev)
			return
		}
		for _, key := range []string{"name", "email"} {
			if v := r.FormValue(key); v != "" {
				patch[key] = v
			}
		}
		for key := range r.MultipartForm.Value {
			if isPasswordField(key) {
				apperror.Respond(w, apperror.BadRequest("This route is not for password updates. Please use /update-password."), h.Dev)
				return
			}
		}
		if files := r.MultipartForm.File["photo"]; len(files) > 0 {
			photo = files[0]
		}
	} else {
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			apperror.Respond(w, apperror.BadRequest("Invalid request body"), h.Dev)
			return
		}
		for key, v := range body {
			if isPasswordField(key) {
				apperror.Respond(w, apperror.BadRequest("This route is not for password updates. Please use /update-password."), h.Dev)
				return
			}
			switch strings.ToLower(key) {
			case "name", "email":
				patch[strings.ToLower(key)] = v
			}
		}
	}

	if photo != nil {
		name, err := h.savePhoto(photo, principal.ID)
		if err != nil {
			apperror.Respond(w, err, h.Dev)
			return
		}
		patch["photo"] = name
	}

	if len(patch) == 0 {
		apperror.Respond(w, apperror.BadRequest("Nothing to update"), h.Dev)
		return
	}

	user, err := h.Users.UpdateByID(ctx, principal.ID, patch)
	if err != nil {
		apperror.Respond(w, apperror.FromMongo(err, "user"), h.Dev)
		return
	}
	utils.Success(w, http.StatusOK, utils.M{"user": user})
}

// DeleteMe deactivates the account. The document stays behind but default
// listings stop returning it.
func (h *Handlers) DeleteMe(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
	defer cancel()

	principal, ok := middleware.PrincipalFrom(r.Context())
	if !ok {
		apperror.Respond(w, apperror.Unauthorized("You are not logged in! Please log in to get access."), h.Dev)
		return
	}
	_, err := h.Users.Collection().UpdateOne(ctx, bson.M{"_id": principal.ID}, bson.M{
		"$set": bson.M{"active": false},
	})
	if err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) savePhoto(file *multipart.FileHeader, userID string) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open photo: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src)
	if err != nil {
		return "", apperror.BadRequest("Not an image! Please upload only images.")
	}

	dir := filepath.Join(h.UploadDir, "users")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	name := fmt.Sprintf("user-%s-%d.jpg", userID, time.Now().UnixMilli())
	square := imaging.Fill(img, photoEdge, photoEdge, imaging.Center, imaging.Lanczos)
	if err := imaging.Save(square, filepath.Join(dir, name), imaging.JPEGQuality(photoJPEGQual)); err != nil {
		return "", fmt.Errorf("save photo: %w", err)
	}
	return name, nil
}

func isPasswordField(key string) bool {
	k := strings.ToLower(key)
	return k == "password" || k == "passwordconfirm" || k == "passwordcurrent"
}

// Admin CRUD. Creation is not served here; accounts come from signup so the
// password pipeline is never bypassed.

func (h *Handlers) List() httprouter.Handle {
	return factory.GetAll("users", h.Users, h.Dev, nil)
}

func (h *Handlers) Get() httprouter.Handle {
	return factory.GetOne("user", h.Users, h.Dev, nil)
}

func (h *Handlers) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	apperror.Respond(w, apperror.Internal("This route is not defined! Please use /signup instead"), h.Dev)
}

func (h *Handlers) Update() httprouter.Handle {
	return factory.UpdateOne("user", h.Users, h.Dev, nil)
}

func (h *Handlers) Delete() httprouter.Handle {
	return factory.DeleteOne("user", h.Users, h.Dev, nil)
}
