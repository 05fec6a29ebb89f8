package handler

// symbolURI символ из пути запроса
type symbolURI struct {
	Symbol string `uri:"symbol" binding:"required,alphanum,max=20"`
}

// signalsQuery параметры запроса ряда сигналов; max совпадает с MaxLimit
type signalsQuery struct {
	Interval string `form:"interval"`
	Limit    *int   `form:"limit" binding:"omitempty,min=1,max=5000"`
}

// historyQuery параметры запроса истории
type historyQuery struct {
	Limit *int `form:"limit" binding:"omitempty,min=1,max=5000"`
}

// SymbolsResponse отслеживаемые символы и символы, по которым уже есть свечи
type SymbolsResponse struct {
	Configured []string `json:"configured"`
	Collected  []string `json:"collected"`
}
