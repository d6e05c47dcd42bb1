package api

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"blog/pkg/models"
	"blog/pkg/storage"
)

// commentText reads and checks the text of a comment or reply.
func (api *API) commentText(w http.ResponseWriter, r *http.Request) (string, error) {
	if err := api.parseForm(w, r); err != nil {
		return "", err
	}

	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		return "", errEmptyText
	}

	if err := api.moderate(r.Context(), text); err != nil {
		return "", err
	}
	return text, nil
}

func (api *API) moderate(ctx context.Context, text string) error {
	if api.mod == nil {
		return nil
	}

	ok, err := api.mod.Allowed(ctx, text)
	if err != nil {
		return fmt.Errorf("moderation failed: %w", err)
	}
	if !ok {
		return errRejected
	}
	return nil
}

func (api *API) addCommentHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	blogID, err := pathID(r, "id", storage.ErrBlogNotFound)
	if err != nil {
		fail(w, "addCommentHandler", sID, err)
		return
	}

	text, err := api.commentText(w, r)
	if err != nil {
		fail(w, "addCommentHandler", sID, err)
		return
	}

	comments, err := api.DB.AddComment(r.Context(), blogID, models.Comment{
		Text:   text,
		Author: models.Author{ID: GetUserID(r.Context())},
	})
	if err != nil {
		fail(w, "addCommentHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, comments); err != nil {
		log.Errorf("[addCommentHandler][%s] failed to encode comments data: %v", sID, err)
		return
	}
	log.Debugf("[addCommentHandler][%s] comment added to blog %s", sID, blogID.Hex())
}

func (api *API) addReplyHandler(w http.ResponseWriter, r *http.Request) {
	sID := shorten(GetRequestID(r.Context()))

	blogID, err := pathID(r, "id", storage.ErrBlogNotFound)
	if err != nil {
		fail(w, "addReplyHandler", sID, err)
		return
	}
	commentID, err := pathID(r, "commentId", storage.ErrCommentNotFound)
	if err != nil {
		fail(w, "addReplyHandler", sID, err)
		return
	}

	text, err := api.commentText(w, r)
	if err != nil {
		fail(w, "addReplyHandler", sID, err)
		return
	}

	replies, err := api.DB.AddReply(r.Context(), blogID, commentID, models.Reply{
		Text:   text,
		Author: models.Author{ID: GetUserID(r.Context())},
	})
	if err != nil {
		fail(w, "addReplyHandler", sID, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, replies); err != nil {
		log.Errorf("[addReplyHandler][%s] failed to encode replies data: %v", sID, err)
		return
	}
	log.Debugf("[addReplyHandler][%s] reply added to comment %s", sID, commentID.Hex())
}
