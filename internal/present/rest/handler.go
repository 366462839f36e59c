package rest

import (
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/totegamma/community/internal/domain"
	"github.com/totegamma/community/internal/present/rest/middleware"
	"github.com/totegamma/community/internal/present/rest/presenter"
	"github.com/totegamma/community/internal/usecase"
)

type Handler struct {
	posts           *usecase.PostUsecase
	comments        *usecase.CommentUsecase
	likes           *usecase.LikeUsecase
	listing         *usecase.ListingUsecase
	attachments     *usecase.AttachmentUsecase
	defaultPageSize int
}

func NewHandler(
	posts *usecase.PostUsecase,
	comments *usecase.CommentUsecase,
	likes *usecase.LikeUsecase,
	listing *usecase.ListingUsecase,
	attachments *usecase.AttachmentUsecase,
	defaultPageSize int,
) *Handler {
	if defaultPageSize <= 0 {
		defaultPageSize = 20
	}
	return &Handler{
		posts:           posts,
		comments:        comments,
		likes:           likes,
		listing:         listing,
		attachments:     attachments,
		defaultPageSize: defaultPageSize,
	}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.handleHealth)

	posts := e.Group("/api/posts")
	posts.GET("", h.handleListPosts)
	posts.POST("", h.handleCreatePost)
	posts.GET("/tags", h.handleTags)
	posts.GET("/users/:userId/liked", h.handleLikedPosts, middleware.RequireIdentity)
	posts.GET("/users/:userId/posts", h.handleMemberPosts, middleware.RequireIdentity)
	posts.DELETE("/attachments/:attachmentId", h.handleDeleteAttachment)
	posts.GET("/:id", h.handleGetPost)
	posts.PUT("/:id", h.handleUpdatePost)
	posts.DELETE("/:id", h.handleDeletePost)
	posts.POST("/:id/verify", h.handleVerifyPost)
	posts.POST("/:id/likes", h.handleAddLike, middleware.RequireIdentity)
	posts.DELETE("/:id/likes", h.handleRemoveLike, middleware.RequireIdentity)
	posts.GET("/:id/attachments", h.handleListAttachments)
	posts.POST("/:id/attachments", h.handleUploadAttachments)
	posts.GET("/:id/comments", h.handleListComments)

	comments := e.Group("/api/comments")
	comments.POST("", h.handleCreateComment)
	comments.GET("/authors/:authorId", h.handleAuthorComments)
	comments.PUT("/:id", h.handleUpdateComment)
	comments.DELETE("/:id", h.handleDeleteComment)
	comments.POST("/:id/verify", h.handleVerifyComment)
}

type anonymousCredential struct {
	AnonymousEmail  string `json:"anonymousEmail" form:"anonymousEmail"`
	AnonymousSecret string `json:"anonymousSecret" form:"anonymousSecret"`
}

type authorRequest struct {
	anonymousCredential
	IsAnonymous bool   `json:"isAnonymous"`
	DisplayName string `json:"displayName"`
}

type createPostRequest struct {
	authorRequest
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

type updatePostRequest struct {
	anonymousCredential
	Title    string   `json:"title"`
	Content  string   `json:"content"`
	Category string   `json:"category"`
	Tags     []string `json:"tags"`
}

type createCommentRequest struct {
	authorRequest
	PostID  int64  `json:"postId"`
	Content string `json:"content"`
}

type updateCommentRequest struct {
	anonymousCredential
	Content string `json:"content"`
}

func (h *Handler) handleHealth(c echo.Context) error {
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleListPosts(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := h.pageRequest(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	query := usecase.ListingQuery{
		Category: c.QueryParam("category"),
		Tag:      c.QueryParam("tag"),
		Search:   c.QueryParam("search"),
		Sort:     usecase.ParseSortMode(c.QueryParam("sort")),
		Page:     req,
	}

	page, err := h.listing.List(ctx, query, viewerAccount(c))
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, presenter.NewPostSummaryPage(page))
}

func (h *Handler) handleTags(c echo.Context) error {
	tags, err := h.posts.Tags(c.Request().Context())
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, tags)
}

func (h *Handler) handleGetPost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	countView := true
	if raw := c.QueryParam("incrementView"); raw != "" {
		countView, err = strconv.ParseBool(raw)
		if err != nil {
			return presenter.BadRequestMessage(c, "invalid incrementView parameter")
		}
	}

	viewer := usecase.Viewer{AccountID: viewerAccount(c), Key: "ip:" + c.RealIP()}
	if viewer.AccountID != nil {
		viewer.Key = fmt.Sprintf("account:%d", *viewer.AccountID)
	}

	detail, err := h.posts.Get(ctx, id, viewer, countView)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, presenter.NewPostDetailView(detail))
}

func (h *Handler) handleCreatePost(c echo.Context) error {
	ctx := c.Request().Context()

	var request createPostRequest
	if err := c.Bind(&request); err != nil {
		return presenter.BadRequest(c, err)
	}

	cred, err := creationCredential(c, request.authorRequest)
	if err != nil {
		return presenter.Error(c, err)
	}

	post, err := h.posts.Create(ctx, usecase.CreatePostInput{
		Title:      request.Title,
		Content:    request.Content,
		Category:   request.Category,
		Tags:       request.Tags,
		Credential: cred,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, presenter.NewPostView(post))
}

func (h *Handler) handleUpdatePost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	var request updatePostRequest
	if err := c.Bind(&request); err != nil {
		return presenter.BadRequest(c, err)
	}

	cred, err := mutationCredential(c, request.anonymousCredential)
	if err != nil {
		return presenter.Error(c, err)
	}

	post, err := h.posts.Update(ctx, id, usecase.UpdatePostInput{
		Title:      request.Title,
		Content:    request.Content,
		Category:   request.Category,
		Tags:       request.Tags,
		Credential: cred,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, presenter.NewPostView(post))
}

func (h *Handler) handleDeletePost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	var request anonymousCredential
	if err := bindOptional(c, &request); err != nil {
		return presenter.BadRequest(c, err)
	}

	cred, err := mutationCredential(c, request)
	if err != nil {
		return presenter.Error(c, err)
	}

	if err := h.posts.Delete(ctx, id, cred); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleVerifyPost(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	var request anonymousCredential
	if err := c.Bind(&request); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.posts.VerifyAnonymous(ctx, id, request.AnonymousEmail, request.AnonymousSecret); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"verified": true})
}

func (h *Handler) handleAddLike(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	identity, _ := middleware.Identity(ctx)

	if err := h.likes.Add(ctx, identity.AccountID, id); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"liked": true})
}

func (h *Handler) handleRemoveLike(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}
	identity, _ := middleware.Identity(ctx)

	if err := h.likes.Remove(ctx, identity.AccountID, id); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"liked": false})
}

func (h *Handler) handleLikedPosts(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, err := selfOnly(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	req, err := h.pageRequest(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	page, err := h.listing.LikedBy(ctx, accountID, req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, presenter.NewPostSummaryPage(page))
}

func (h *Handler) handleMemberPosts(c echo.Context) error {
	ctx := c.Request().Context()

	accountID, err := selfOnly(c)
	if err != nil {
		return presenter.Error(c, err)
	}
	req, err := h.pageRequest(c)
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	page, err := h.listing.AuthoredBy(ctx, accountID, req)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, presenter.NewPostSummaryPage(page))
}

func (h *Handler) handleListAttachments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	attachments, err := h.attachments.List(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	if attachments == nil {
		attachments = []domain.Attachment{}
	}
	return presenter.OK(c, attachments)
}

func (h *Handler) handleUploadAttachments(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	form, err := c.MultipartForm()
	if err != nil {
		return presenter.BadRequestMessage(c, "multipart form expected")
	}

	cred, err := mutationCredential(c, anonymousCredential{
		AnonymousEmail:  c.FormValue("anonymousEmail"),
		AnonymousSecret: c.FormValue("anonymousSecret"),
	})
	if err != nil {
		return presenter.Error(c, err)
	}

	files := form.File["files"]
	uploads := make([]usecase.Upload, 0, len(files))
	for _, fh := range files {
		uploads = append(uploads, usecase.Upload{
			Meta: usecase.FileMeta{
				OriginalName: fh.Filename,
				ContentType:  fh.Header.Get("Content-Type"),
				Size:         fh.Size,
			},
			Open: openerFor(fh),
		})
	}

	created, err := h.attachments.Upload(ctx, id, cred, uploads)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, created)
}

func (h *Handler) handleDeleteAttachment(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "attachmentId")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	var request anonymousCredential
	if err := bindOptional(c, &request); err != nil {
		return presenter.BadRequest(c, err)
	}

	cred, err := mutationCredential(c, request)
	if err != nil {
		return presenter.Error(c, err)
	}

	if err := h.attachments.Delete(ctx, id, cred); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleListComments(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	comments, err := h.comments.ListByPost(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, presenter.NewCommentViews(comments))
}

func (h *Handler) handleAuthorComments(c echo.Context) error {
	id, err := pathID(c, "authorId")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	comments, err := h.comments.ListByAuthor(c.Request().Context(), id)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, presenter.NewCommentViews(comments))
}

func (h *Handler) handleCreateComment(c echo.Context) error {
	ctx := c.Request().Context()

	var request createCommentRequest
	if err := c.Bind(&request); err != nil {
		return presenter.BadRequest(c, err)
	}
	if request.PostID <= 0 {
		return presenter.BadRequestMessage(c, "postId is required")
	}

	cred, err := creationCredential(c, request.authorRequest)
	if err != nil {
		return presenter.Error(c, err)
	}

	comment, err := h.comments.Create(ctx, usecase.CreateCommentInput{
		PostID:     request.PostID,
		Content:    request.Content,
		Credential: cred,
	})
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.Created(c, presenter.NewCommentView(comment))
}

func (h *Handler) handleUpdateComment(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	var request updateCommentRequest
	if err := c.Bind(&request); err != nil {
		return presenter.BadRequest(c, err)
	}

	cred, err := mutationCredential(c, request.anonymousCredential)
	if err != nil {
		return presenter.Error(c, err)
	}

	comment, err := h.comments.Update(ctx, id, request.Content, cred)
	if err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, presenter.NewCommentView(comment))
}

func (h *Handler) handleDeleteComment(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	var request anonymousCredential
	if err := bindOptional(c, &request); err != nil {
		return presenter.BadRequest(c, err)
	}

	cred, err := mutationCredential(c, request)
	if err != nil {
		return presenter.Error(c, err)
	}

	if err := h.comments.Delete(ctx, id, cred); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"status": "ok"})
}

func (h *Handler) handleVerifyComment(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := pathID(c, "id")
	if err != nil {
		return presenter.BadRequest(c, err)
	}

	var request anonymousCredential
	if err := c.Bind(&request); err != nil {
		return presenter.BadRequest(c, err)
	}

	if err := h.comments.VerifyAnonymous(ctx, id, request.AnonymousEmail, request.AnonymousSecret); err != nil {
		return presenter.Error(c, err)
	}
	return presenter.OK(c, echo.Map{"verified": true})
}

// selfOnly returns the caller's account id when it matches :userId.
func selfOnly(c echo.Context) (int64, error) {
	userID, err := pathID(c, "userId")
	if err != nil {
		return 0, domain.NewValidationError("userId", err.Error())
	}
	identity, _ := middleware.Identity(c.Request().Context())
	if identity.AccountID != userID {
		slog.InfoContext(c.Request().Context(), "listing of another account refused",
			slog.Int64("accountId", identity.AccountID),
			slog.Int64("userId", userID),
			slog.String("module", "rest"),
		)
		return 0, domain.ErrAccessDenied
	}
	return userID, nil
}

func (h *Handler) pageRequest(c echo.Context) (domain.PageRequest, error) {
	req := domain.PageRequest{Page: 0, Size: h.defaultPageSize}
	if raw := c.QueryParam("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("invalid page parameter")
		}
		req.Page = page
	}
	if raw := c.QueryParam("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return req, errors.New("invalid size parameter")
		}
		req.Size = size
	}
	return req, nil
}

func pathID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.Errorf("invalid %s", name)
	}
	return id, nil
}

// viewerAccount returns the authenticated account for read paths. A failed
// or unreachable token check reads as unauthenticated.
func viewerAccount(c echo.Context) *int64 {
	identity, ok := middleware.Identity(c.Request().Context())
	if !ok {
		return nil
	}
	id := identity.AccountID
	return &id
}

// creationCredential builds the credential for new content. A token that was
// presented but could not be verified fails the request.
func creationCredential(c echo.Context, request authorRequest) (domain.Credential, error) {
	ctx := c.Request().Context()
	if err := middleware.AuthError(ctx); err != nil {
		return domain.Credential{}, err
	}

	cred := domain.Credential{
		DisplayName:     request.DisplayName,
		IsAnonymous:     request.IsAnonymous,
		AnonymousEmail:  request.AnonymousEmail,
		AnonymousSecret: request.AnonymousSecret,
	}
	if identity, ok := middleware.Identity(ctx); ok {
		id := identity.AccountID
		cred.AccountID = &id
		cred.DisplayName = identity.DisplayName
	}
	return cred, nil
}

// mutationCredential combines the token identity, if any, with anonymous
// credentials from the request body.
func mutationCredential(c echo.Context, request anonymousCredential) (domain.Credential, error) {
	ctx := c.Request().Context()
	if err := middleware.AuthError(ctx); err != nil {
		return domain.Credential{}, err
	}

	cred := domain.Credential{
		AnonymousEmail:  request.AnonymousEmail,
		AnonymousSecret: request.AnonymousSecret,
	}
	if identity, ok := middleware.Identity(ctx); ok {
		id := identity.AccountID
		cred.AccountID = &id
	}
	return cred, nil
}

// bindOptional binds a request body when one was sent.
func bindOptional(c echo.Context, target any) error {
	if c.Request().ContentLength == 0 {
		return nil
	}
	return c.Bind(target)
}

func openerFor(fh *multipart.FileHeader) func() (io.ReadCloser, error) {
	return func() (io.ReadCloser, error) {
		return fh.Open()
	}
}
