package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kode4food/walkthrough/pkg/api"
)

func (s *Server) listRecipes(c *gin.Context) {
	ctx := c.Request.Context()
	list := s.sessions.Recipes().List()

	res := make([]*api.RecipeInfo, 0, len(list))
	for _, rec := range list {
		info, err := s.sessions.Describe(ctx, rec.ID)
		if err != nil {
			s.fail(c, ErrListRecipes, err)
			return
		}
		res = append(res, info)
	}

	c.JSON(http.StatusOK, api.RecipesListResponse{
		Recipes: res,
		Count:   len(res),
	})
}

func (s *Server) getRecipe(c *gin.Context) {
	id := api.RecipeID(c.Param("recipeID"))

	info, err := s.sessions.Describe(c.Request.Context(), id)
	if err != nil {
		s.fail(c, ErrListRecipes, err)
		return
	}

	c.JSON(http.StatusOK, info)
}
