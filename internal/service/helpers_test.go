package service_test

import "github.com/unclebandit/coachline-backend/internal/service"

func serviceClientInput(name string) service.ClientInput {
	return service.ClientInput{Name: name, Phone: "+199", Timezone: "EST"}
}
