// internal/fleet/gate.go
package fleet

import "github.com/aldegalts/car-rental/internal/status"

// CanStartRental reports whether a new rental may begin on car. Only a car
// whose status is Rented is refused; a car without a status is available.
func CanStartRental(car *Car) bool {
	return !car.Status.Is(status.Rented)
}
