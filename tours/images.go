package tours

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"wayfare/apperror"
	"wayfare/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sync/errgroup"
)

const (
	maxUploadBytes = 20 << 20
	coverWidth     = 2000
	coverHeight    = 1333
	maxGalleryPics = 3
)

func (h *Handlers) tourImageDir() string {
	return filepath.Join(h.UploadDir, "tours")
}

func (h *Handlers) processTourImage(file *multipart.FileHeader, name string) error {
	src, err := file.Open()
	if err != nil {
		return fmt.Errorf("open image file: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src)
	if err != nil {
		return apperror.BadRequest("Not an image! Please upload only images.")
	}

	resized := imaging.Fill(img, coverWidth, coverHeight, imaging.Center, imaging.Lanczos)
	path := filepath.Join(h.tourImageDir(), name)
	if err := imaging.Save(resized, path, imaging.JPEGQuality(90)); err != nil {
		return fmt.Errorf("save image %s: %w", name, err)
	}
	return nil
}

// UploadImages accepts a multipart form with an optional "imageCover" file
// and up to three "images" files, resizes them to the standard 3:2 frame and
// patches the tour document with the stored filenames. Gallery pictures are
// processed concurrently.
func (h *Handlers) UploadImages(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	tourID := ps.ByName("id")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		apperror.Respond(w, apperror.BadRequest("Invalid multipart form"), h.Dev)
		return
	}
	if err := os.MkdirAll(h.tourImageDir(), 0o755); err != nil {
		apperror.Respond(w, err, h.Dev)
		return
	}

	stamp := time.Now().UnixMilli()
	patch := bson.M{}

	if covers := r.MultipartForm.File["imageCover"]; len(covers) > 0 {
		name := fmt.Sprintf("tour-%s-%d-cover.jpg", tourID, stamp)
		if err := h.processTourImage(covers[0], name); err != nil {
			apperror.Respond(w, err, h.Dev)
			return
		}
		patch["imagecover"] = name
	}

	if files := r.MultipartForm.File["images"]; len(files) > 0 {
		if len(files) > maxGalleryPics {
			files = files[:maxGalleryPics]
		}
		names := make([]string, len(files))
		var g errgroup.Group
		for i, file := range files {
			names[i] = fmt.Sprintf("tour-%s-%d-%d.jpg", tourID, stamp, i+1)
			g.Go(func() error {
				return h.processTourImage(file, names[i])
			})
		}
		if err := g.Wait(); err != nil {
			apperror.Respond(w, err, h.Dev)
			return
		}
		patch["images"] = names
	}

	if len(patch) == 0 {
		apperror.Respond(w, apperror.BadRequest("No images in request"), h.Dev)
		return
	}

	tour, err := h.Tours.UpdateByID(r.Context(), tourID, patch)
	if err != nil {
		apperror.Respond(w, apperror.FromMongo(err, "tour"), h.Dev)
		return
	}
	utils.Success(w, http.StatusOK, utils.M{"tour": tour})
}
