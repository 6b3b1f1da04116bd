package command

// HelpText lists the voice commands the interpreter understands.
const HelpText = `Voice commands:
  add <amount> for <category>   record an expense, e.g. "add 500 for food"
  show pie chart                open the category breakdown
  show summary | show report    open the expense summary
  show dashboard | ceo dashboard
                                open the budget dashboard
  help                          show this help

Categories can be abbreviated: "add 200 for soft" records under Software.`
