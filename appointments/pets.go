package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"pawmart/db"
	"pawmart/models"
	"pawmart/utils"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AddPet registers a pet under the caller's account.
func AddPet(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var pet models.Pet
	if err := json.NewDecoder(r.Body).Decode(&pet); err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if pet.Name == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Pet needs a name")
		return
	}
	pet.PetID = utils.GetUUID()
	pet.OwnerID = userID

	if _, err := db.PetCollection.InsertOne(ctx, pet); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to register pet")
		return
	}
	utils.RespondWithJSON(w, http.StatusCreated, pet)
}

// GetMyPets lists the caller's pets.
func GetMyPets(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	cursor, err := db.PetCollection.Find(ctx, bson.M{"ownerId": userID})
	if err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load pets")
		return
	}
	defer cursor.Close(ctx)

	pets := []models.Pet{}
	if err := cursor.All(ctx, &pets); err != nil {
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to load pets")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, pets)
}

// ownsPet reports whether the pet exists and belongs to the user.
func ownsPet(ctx context.Context, petID, userID string) (bool, error) {
	var pet models.Pet
	err := db.PetCollection.FindOne(ctx, bson.M{"petId": petID}).Decode(&pet)
	if err == mongo.ErrNoDocuments {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return pet.OwnerID == userID, nil
}
