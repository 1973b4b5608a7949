package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"linkly/internal/middleware"
	"linkly/internal/services"
)

type CreateBookmarkRequest struct {
	Title       string   `json:"title" binding:"omitempty,max=300"`
	URL         string   `json:"url" binding:"required,url"`
	Description string   `json:"description" binding:"omitempty,max=2000"`
	Tags        []string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
}

type UpdateBookmarkRequest struct {
	Title       *string   `json:"title" binding:"omitempty,min=1,max=300"`
	URL         *string   `json:"url" binding:"omitempty,url"`
	Description *string   `json:"description" binding:"omitempty,max=2000"`
	Tags        *[]string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	IsArchived  *bool     `json:"isArchived"`
	IsFavorite  *bool     `json:"isFavorite"`
}

// ListBookmarks answers with every match unless page or limit is given, in
// which case the response is paginated.
func ListBookmarks(svc *services.BookmarkService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		filter := services.ListFilter{Search: c.Query("search"), Tag: c.Query("tag")}

		pageStr, limitStr := c.Query("page"), c.Query("limit")
		if pageStr == "" && limitStr == "" {
			bookmarks, err := svc.List(c.Request.Context(), id, filter)
			if err != nil {
				respondError(c, err)
				return
			}
			c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
			return
		}

		page, limit, err := parsePaginationParams(pageStr, limitStr)
		if err != nil {
			respondError(c, err)
			return
		}

		result, err := svc.ListPage(c.Request.Context(), id, services.ListParams{
			Page:   page,
			Limit:  limit,
			Search: filter.Search,
			Tag:    filter.Tag,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func SearchBookmarks(svc *services.BookmarkService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		bookmarks, err := svc.Search(c.Request.Context(), id, c.Query("q"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
	}
}

func BookmarksByTag(svc *services.BookmarkService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		bookmarks, err := svc.ByTag(c.Request.Context(), id, c.Param("tag"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookmarks": bookmarks})
	}
}

func GetBookmark(svc *services.BookmarkService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		bookmark, err := svc.Get(c.Request.Context(), id, c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookmark": bookmark})
	}
}

func CreateBookmark(svc *services.BookmarkService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		var req CreateBookmarkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		bookmark, err := svc.Create(c.Request.Context(), id, services.CreateBookmarkInput{
			Title:       req.Title,
			URL:         req.URL,
			Description: req.Description,
			Tags:        req.Tags,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"bookmark": bookmark})
	}
}

func UpdateBookmark(svc *services.BookmarkService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		var req UpdateBookmarkRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respondValidationError(c, err)
			return
		}

		bookmark, err := svc.Update(c.Request.Context(), id, c.Param("id"), services.UpdateBookmarkInput{
			Title:       req.Title,
			URL:         req.URL,
			Description: req.Description,
			Tags:        req.Tags,
			IsArchived:  req.IsArchived,
			IsFavorite:  req.IsFavorite,
		})
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"bookmark": bookmark})
	}
}

func DeleteBookmark(svc *services.BookmarkService) middleware.AuthedHandler {
	return func(c *gin.Context, id *services.Identity) {
		if err := svc.Delete(c.Request.Context(), id, c.Param("id")); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "Bookmark deleted successfully"})
	}
}
