package validations

import (
	"context"
	"regexp"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	domainCatalog "github.com/ozcart/salewatch/domains/catalog"
	pkgError "github.com/ozcart/salewatch/pkg/error"
)

var postcodeRe = regexp.MustCompile(`^\d{4}$`)

func ValidateCheckItems(ctx context.Context, request domainCatalog.CheckItemsRequest) error {
	err := validation.ValidateStructWithContext(ctx, &request,
		validation.Field(&request.Items,
			validation.Required,
			validation.Length(1, 50),
			validation.Each(validation.Required, validation.Length(1, 200)),
		),
		validation.Field(&request.Postcode,
			validation.Required,
			validation.Match(postcodeRe).Error("must be a 4 digit Australian postcode"),
		),
	)

	if err != nil {
		return pkgError.ValidationError(err.Error())
	}

	return nil
}
