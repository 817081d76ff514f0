package kernel

type UserID string

func NewUserID(id string) UserID { return UserID(id) }
func (u UserID) String() string  { return string(u) }
func (u UserID) IsEmpty() bool   { return string(u) == "" }

type RentalID string

func NewRentalID(id string) RentalID { return RentalID(id) }
func (r RentalID) String() string    { return string(r) }
func (r RentalID) IsEmpty() bool     { return string(r) == "" }

type PaymentID string

func NewPaymentID(id string) PaymentID { return PaymentID(id) }
func (p PaymentID) String() string     { return string(p) }
func (p PaymentID) IsEmpty() bool      { return string(p) == "" }
