package document

var CheckTemplate = checkTemplate
