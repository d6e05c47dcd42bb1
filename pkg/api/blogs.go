package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"blog/pkg/models"
	"blog/pkg/storage"
)

// pathID parses an ObjectID route variable. A value that is not a valid ObjectID cannot
// name a stored document, so it is reported as notFound.
func pathID(r *http.Request, name string, notFound error) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)[name])
	if err != nil {
		return primitive.NilObjectID, notFound
	}
	return id, nil
}

func (api *API) createBlogHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))
	userID := GetUserID(r.Context())

	if err := api.parseForm(w, r); err != nil {
		fail(w, "createBlogHandler", sID, err)
		return
	}

	if author := r.FormValue("author"); author != "" && author != userID.Hex() {
		fail(w, "createBlogHandler", sID, errAuthorMismatch)
		return
	}

	title, description := strings.TrimSpace(r.FormValue("title")), strings.TrimSpace(r.FormValue("description"))
	if title == "" || description == "" {
		fail(w, "createBlogHandler", sID, errBlogFields)
		return
	}

	image, err := api.media.Save(r, "image")
	if err != nil {
		fail(w, "createBlogHandler", sID, err)
		return
	}

	blog, err := api.DB.CreateBlog(r.Context(), models.Blog{
		Title:       title,
		Description: description,
		Image:       image,
		Author:      models.Author{ID: userID},
	})
	if err != nil {
		api.discard(image, sID)
		fail(w, "createBlogHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, blog); err != nil {
		log.Errorf("[createBlogHandler][%s] failed to encode blog data: %v", sID, err)
		return
	}
	log.Infof("[createBlogHandler][%s] blog %s created by %s", sID, blog.ID.Hex(), userID.Hex())
}

func (api *API) listBlogsHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	blogs, err := api.DB.Blogs(r.Context())
	if err != nil {
		fail(w, "listBlogsHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, blogs); err != nil {
		log.Errorf("[listBlogsHandler][%s] failed to encode blogs data: %v", sID, err)
		return
	}
	log.Debugf("[listBlogsHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

func (api *API) listBlogsByAuthorHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	authorID, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid author id")
		log.Debugf("[listBlogsByAuthorHandler][%s] failed to parse author ID: %v", sID, err)
		return
	}

	blogs, err := api.DB.BlogsByAuthor(r.Context(), authorID)
	if err != nil {
		fail(w, "listBlogsByAuthorHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, blogs); err != nil {
		log.Errorf("[listBlogsByAuthorHandler][%s] failed to encode blogs data: %v", sID, err)
		return
	}
	log.Debugf("[listBlogsByAuthorHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

func (api *API) blogHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	id, err := pathID(r, "id", storage.ErrBlogNotFound)
	if err != nil {
		fail(w, "blogHandler", sID, err)
		return
	}

	blog, err := api.DB.Blog(r.Context(), id)
	if err != nil {
		fail(w, "blogHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, blog); err != nil {
		log.Errorf("[blogHandler][%s] failed to encode blog data: %v", sID, err)
		return
	}
	log.Debugf("[blogHandler][%s] response sent to: %v", sID, r.RemoteAddr)
}

func (api *API) updateBlogHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	id, err := pathID(r, "id", storage.ErrBlogNotFound)
	if err != nil {
		fail(w, "updateBlogHandler", sID, err)
		return
	}

	if err := api.parseForm(w, r); err != nil {
		fail(w, "updateBlogHandler", sID, err)
		return
	}

	image, err := api.media.Save(r, "image")
	if err != nil {
		fail(w, "updateBlogHandler", sID, err)
		return
	}

	blog, err := api.DB.UpdateBlog(r.Context(), id, models.BlogUpdate{
		Title:       strings.TrimSpace(r.FormValue("title")),
		Description: strings.TrimSpace(r.FormValue("description")),
		Image:       image,
	})
	if err != nil {
		api.discard(image, sID)
		fail(w, "updateBlogHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, blog); err != nil {
		log.Errorf("[updateBlogHandler][%s] failed to encode blog data: %v", sID, err)
		return
	}
	log.Infof("[updateBlogHandler][%s] blog %s updated", sID, id.Hex())
}

func (api *API) deleteBlogHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	id, err := pathID(r, "id", storage.ErrBlogNotFound)
	if err != nil {
		fail(w, "deleteBlogHandler", sID, err)
		return
	}

	err = api.DB.DeleteBlog(r.Context(), id)
	switch {
	case errors.Is(err, storage.ErrBlogNotFound):
		log.Debugf("[deleteBlogHandler][%s] blog %s did not exist", sID, id.Hex())
	case err != nil:
		fail(w, "deleteBlogHandler", sID, err)
		return
	default:
		log.Infof("[deleteBlogHandler][%s] blog %s removed", sID, id.Hex())
	}

	if err := writeJSON(w, http.StatusOK, MessageResponse{Message: "Blog removed"}); err != nil {
		log.Errorf("[deleteBlogHandler][%s] failed to encode response data: %v", sID, err)
	}
}
