package controllers

import (
	"net/http"

	"inkdesk-backend/services"
	"inkdesk-backend/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type UpdatePageInput struct {
	Headline    *string  `json:"headline"`
	About       *string  `json:"about"`
	Location    *string  `json:"location"`
	Styles      []string `json:"styles"`
	BookingOpen *bool    `json:"bookingOpen"`
	Published   *bool    `json:"published"`
}

type RemoveGalleryInput struct {
	URL string `json:"url" binding:"required"`
}

type PageController struct {
	pages  *services.PageService
	store  services.FileStore
	logger *zap.Logger
}

func NewPageController(pages *services.PageService, store services.FileStore, logger *zap.Logger) *PageController {
	return &PageController{pages: pages, store: store, logger: logger}
}

// GetPublicPage serves an artist page by slug. Anonymous callers are allowed.
func (pc *PageController) GetPublicPage(c *gin.Context) {
	viewer, _, _ := utils.CurrentUser(c)
	page, err := pc.pages.GetBySlug(c.Request.Context(), c.Param("slug"), viewer)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (pc *PageController) ListArtists(c *gin.Context) {
	p := utils.ParsePagination(c)
	artists, total, err := pc.pages.ListArtists(c.Request.Context(), p)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"artists": artists, "meta": p.Meta(total)})
}

func (pc *PageController) GetMyPage(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	page, err := pc.pages.Mine(c.Request.Context(), artistID)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (pc *PageController) UpdateMyPage(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var input UpdatePageInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}
	page, err := pc.pages.Update(c.Request.Context(), artistID, services.UpdatePageInput{
		Headline:    input.Headline,
		About:       input.About,
		Location:    input.Location,
		Styles:      input.Styles,
		BookingOpen: input.BookingOpen,
		Published:   input.Published,
	})
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (pc *PageController) UploadHeader(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("headerImage")
	if err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "headerImage file is required")
		return
	}

	ctx := c.Request.Context()
	att, err := pc.store.Save(ctx, "headers", fh, services.ImageTypes)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	page, previous, err := pc.pages.SetHeader(ctx, artistID, att.URL)
	if err != nil {
		pc.discard(c, att.URL)
		respondServiceError(c, pc.logger, err)
		return
	}
	if previous != "" {
		pc.discard(c, previous)
	}
	c.JSON(http.StatusOK, page)
}

func (pc *PageController) UploadGallery(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil || len(form.File["gallery"]) == 0 {
		utils.RespondWithError(c, http.StatusBadRequest, "At least one gallery file is required")
		return
	}

	ctx := c.Request.Context()
	urls := make([]string, 0, len(form.File["gallery"]))
	for _, fh := range form.File["gallery"] {
		att, err := pc.store.Save(ctx, "gallery", fh, services.ImageTypes)
		if err != nil {
			for _, u := range urls {
				pc.discard(c, u)
			}
			respondServiceError(c, pc.logger, err)
			return
		}
		urls = append(urls, att.URL)
	}

	page, err := pc.pages.AddGalleryItems(ctx, artistID, urls)
	if err != nil {
		for _, u := range urls {
			pc.discard(c, u)
		}
		respondServiceError(c, pc.logger, err)
		return
	}
	c.JSON(http.StatusCreated, page)
}

func (pc *PageController) RemoveGalleryItem(c *gin.Context) {
	artistID, _, ok := currentUser(c)
	if !ok {
		return
	}
	var input RemoveGalleryInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: url is required")
		return
	}
	page, err := pc.pages.RemoveGalleryItem(c.Request.Context(), artistID, input.URL)
	if err != nil {
		respondServiceError(c, pc.logger, err)
		return
	}
	pc.discard(c, input.URL)
	c.JSON(http.StatusOK, page)
}

func (pc *PageController) discard(c *gin.Context, url string) {
	if err := pc.store.Delete(c.Request.Context(), url); err != nil {
		pc.logger.Warn("stored file not removed", zap.String("url", url), zap.Error(err))
	}
}
