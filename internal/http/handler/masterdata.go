package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"docrepo/internal/service"
)

// ListDepartments returns every department, served from cache when possible.
//
//	@Summary	List departments
//	@Tags		master-data
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	model.Department
//	@Router		/api/v1/departments [get]
func ListDepartments(svc service.MasterDataService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.ListDepartments(c.UserContext())
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(out)
	}
}

// ListCategories returns every category.
//
//	@Summary	List categories
//	@Tags		master-data
//	@Produce	json
//	@Security	BearerAuth
//	@Success	200	{array}	model.Category
//	@Router		/api/v1/categories [get]
func ListCategories(svc service.MasterDataService, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, err := svc.ListCategories(c.UserContext())
		if err != nil {
			return writeServiceError(c, log, err)
		}
		return c.JSON(out)
	}
}
