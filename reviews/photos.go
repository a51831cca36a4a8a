package reviews

import (
	"context"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"pawmart/apperr"
	"pawmart/utils"

	"github.com/disintegration/imaging"
	"github.com/julienschmidt/httprouter"
)

const reviewPhotoDir = "static/reviewpic"

// POST /api/reviews/:businessid/:reviewid/photos (multipart, field "photos")
func UploadReviewPhotos(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	if err := r.ParseMultipartForm(16 << 20); err != nil {
		http.Error(w, "Invalid multipart payload", http.StatusBadRequest)
		return
	}

	files := r.MultipartForm.File["photos"]
	if len(files) == 0 {
		http.Error(w, "No photos uploaded", http.StatusBadRequest)
		return
	}

	var paths []string
	for _, file := range files {
		path, err := processReviewPhoto(file)
		if err != nil {
			log.Println("UploadReviewPhotos error:", err)
			http.Error(w, "Failed to process photo", http.StatusBadRequest)
			return
		}
		paths = append(paths, path)
	}

	if err := Default().AddPhotos(ctx, ps.ByName("reviewid"), userID, paths); err != nil {
		log.Println("UploadReviewPhotos store error:", err)
		utils.RespondWithError(w, apperr.Status(err), err.Error())
		return
	}

	utils.RespondWithJSON(w, http.StatusCreated, map[string]any{"ok": true, "photos": paths})
}

func processReviewPhoto(file *multipart.FileHeader) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("failed to open image file: %w", err)
	}
	defer src.Close()

	img, err := imaging.Decode(src)
	if err != nil {
		return "", fmt.Errorf("failed to decode image: %w", err)
	}

	uniqueID := utils.GenerateRandomString(16)
	fileName := uniqueID + ".jpg"

	originalPath := filepath.Join(reviewPhotoDir, fileName)
	thumbDir := filepath.Join(reviewPhotoDir, "thumb")
	thumbnailPath := filepath.Join(thumbDir, fileName)

	if err := os.MkdirAll(reviewPhotoDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create upload directory: %w", err)
	}
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create thumbnail directory: %w", err)
	}

	if err := imaging.Save(img, originalPath); err != nil {
		return "", fmt.Errorf("failed to save original image: %w", err)
	}

	thumbImg := imaging.Resize(img, 300, 0, imaging.Lanczos)
	if err := imaging.Save(thumbImg, thumbnailPath); err != nil {
		return "", fmt.Errorf("failed to save thumbnail: %w", err)
	}

	return "/" + reviewPhotoDir + "/" + fileName, nil
}
