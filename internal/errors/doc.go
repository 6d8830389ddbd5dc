// Package errors provides structured error handling for the encounter API.
//
// Errors carry a code, a user-facing message, optional metadata, and an
// optional wrapped cause. Codes map directly onto gRPC status codes.
//
// Creating errors:
//
//	err := errors.NotFound("encounter not found")
//	err := errors.InvalidArgumentf("invalid armor class: %d", ac)
//
// Wrapping errors:
//
//	if err := repo.Get(ctx, id); err != nil {
//	    return errors.Wrap(err, "failed to get encounter")
//	}
//
// Checking errors:
//
//	if errors.IsNotFound(err) {
//	    // handle missing encounter
//	}
//
// Validating inputs:
//
//	vb := errors.NewValidationBuilder()
//	errors.ValidateRequired("Name", input.Name, vb)
//	errors.ValidateRange("ArmorClass", input.ArmorClass, 1, 30, vb)
//	if err := vb.Build(); err != nil {
//	    return err
//	}
//
// Layer conventions: repositories return NotFound/AlreadyExists with the
// relevant IDs, orchestrators return InvalidArgument for bad input and
// FailedPrecondition for rule violations, and handlers convert with
// ToGRPCError at the boundary.
package errors
